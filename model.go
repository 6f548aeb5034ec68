package mlmd

// TypeKind discriminates the three type families sharing one Type table.
type TypeKind int

const (
	ExecutionTypeKind TypeKind = 0
	ArtifactTypeKind  TypeKind = 1
	ContextTypeKind   TypeKind = 2
)

// PropertyDataType is the datatype assigned to a declared type property.
type PropertyDataType int

const (
	Int    PropertyDataType = 1
	Double PropertyDataType = 2
	String PropertyDataType = 3
)

// ArtifactState is the lifecycle state of an Artifact.
type ArtifactState int

const (
	ArtifactUnknown ArtifactState = iota
	ArtifactPending
	ArtifactLive
	ArtifactMarkedForDeletion
	ArtifactDeleted
)

// ExecutionState is the lifecycle state of an Execution.
type ExecutionState int

const (
	ExecutionUnknown ExecutionState = iota
	ExecutionNew
	ExecutionRunning
	ExecutionComplete
	ExecutionFailed
	ExecutionCached
	ExecutionCanceled
)

// EventType classifies the role an artifact played in an execution.
type EventType int

const (
	EventUnknown EventType = iota
	EventDeclaredOutput
	EventDeclaredInput
	EventInput
	EventOutput
	EventInternalInput
	EventInternalOutput
	EventPendingOutput
)

// Type describes the schema for one family of instances (spec §3).
// InputType/OutputType are execution-type-only opaque blobs that round-trip
// through the schema but are never populated by this library's own writers;
// see DESIGN.md for why they are not promoted to first-class fields.
type Type struct {
	ID          int64
	Kind        TypeKind
	Name        string
	Version     string // empty string means "no version", per the NULL-safety note in spec §9
	Description string
	Properties  map[string]PropertyDataType
	ParentTypeIDs []int64
}

// PutTypeOptions are the inputs to the PUT-type upsert (spec §4.2).
type PutTypeOptions struct {
	Kind          TypeKind
	Name          string
	Version       string
	Description   string
	Properties    map[string]PropertyDataType
	ParentTypeIDs []int64
	CanAddFields  bool
	CanOmitFields bool
}

// PropertyValue is a tagged union over the four supported property value
// variants (spec §4.3). Exactly one field is meaningful at a time; IsInt,
// IsDouble, IsString and IsProto report which.
type PropertyValue struct {
	variant propertyVariant
	i       int64
	d       float64
	s       string
}

type propertyVariant int

const (
	variantInt propertyVariant = iota
	variantDouble
	variantString
	variantProto
)

func IntValue(v int64) PropertyValue      { return PropertyValue{variant: variantInt, i: v} }
func DoubleValue(v float64) PropertyValue { return PropertyValue{variant: variantDouble, d: v} }
func StringValue(v string) PropertyValue  { return PropertyValue{variant: variantString, s: v} }

// ProtoValue wraps an opaque serialized message, stored as text in the
// string_value column (spec §9 — the envelope framing is left to the caller).
func ProtoValue(v []byte) PropertyValue {
	return PropertyValue{variant: variantProto, s: string(v)}
}

func (p PropertyValue) IsInt() bool    { return p.variant == variantInt }
func (p PropertyValue) IsDouble() bool { return p.variant == variantDouble }
func (p PropertyValue) IsString() bool { return p.variant == variantString }
func (p PropertyValue) IsProto() bool  { return p.variant == variantProto }

func (p PropertyValue) Int() int64      { return p.i }
func (p PropertyValue) Double() float64 { return p.d }
func (p PropertyValue) String() string  { return p.s }
func (p PropertyValue) Proto() []byte   { return []byte(p.s) }

// DataType reports the declared-property datatype this value would satisfy.
// Proto values report String, since both are stored in string_value and the
// schema has no fourth column to discriminate them (spec §9).
func (p PropertyValue) DataType() PropertyDataType {
	switch p.variant {
	case variantInt:
		return Int
	case variantDouble:
		return Double
	default:
		return String
	}
}

func (p PropertyValue) equal(o PropertyValue) bool {
	if p.variant != o.variant {
		return false
	}
	switch p.variant {
	case variantInt:
		return p.i == o.i
	case variantDouble:
		return p.d == o.d
	default:
		return p.s == o.s
	}
}

// Artifact is a data object produced or consumed by executions.
type Artifact struct {
	ID                      int64
	TypeID                  int64
	Name                    string // empty means unset; optional for artifacts
	URI                     string
	State                   ArtifactState
	CreateTimeSinceEpoch    int64
	LastUpdateTimeSinceEpoch int64
	Properties              map[string]PropertyValue
	CustomProperties        map[string]PropertyValue
}

// Execution is a run of a processing step.
type Execution struct {
	ID                      int64
	TypeID                  int64
	Name                    string
	LastKnownState          ExecutionState
	CreateTimeSinceEpoch    int64
	LastUpdateTimeSinceEpoch int64
	Properties              map[string]PropertyValue
	CustomProperties        map[string]PropertyValue
}

// Context is a grouping (experiment, pipeline run) over artifacts and executions.
type Context struct {
	ID                      int64
	TypeID                  int64
	Name                    string // required for contexts
	CreateTimeSinceEpoch    int64
	LastUpdateTimeSinceEpoch int64
	Properties              map[string]PropertyValue
	CustomProperties        map[string]PropertyValue
}

// PathStep is one step of an Event's path: either an integer index or a
// string key, never both (spec §3).
type PathStep struct {
	IsIndex bool
	Index   int64
	Key     string
}

// Event links one artifact and one execution with a role and an ordered path.
type Event struct {
	ID                    int64
	ArtifactID            int64
	ExecutionID           int64
	Type                  EventType
	MillisecondsSinceEpoch int64
	Path                  []PathStep
}
