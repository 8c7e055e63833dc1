package event

// Detail is the category-specific part of an Event. Exactly one variant
// exists per category; the unexported method closes the set.
type Detail interface {
	Category() Category
	detail()
}

// Result is the outcome of an access attempt.
type Result string

const (
	ResultGranted Result = "granted"
	ResultDenied  Result = "denied"
)

// Severity grades alarm and fault events.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Access is a credential presented at a door.
type Access struct {
	CardholderID   string
	CardholderName string
	CardNumber     string
	AccessGroup    string
	Result         Result
	Details        string
}

// Door is a physical door state change.
type Door struct {
	Details string
}

// Alarm is a security alarm raised at a door.
type Alarm struct {
	Severity Severity
	Details  string
}

// Fault is a hardware fault reported for a door.
type Fault struct {
	Severity Severity
	Details  string
}

// System is a controller-level event. Controller fields are empty when the
// door has no owning controller.
type System struct {
	ControllerID   string
	ControllerName string
	Details        string
}

func (Access) Category() Category { return CategoryAccess }
func (Door) Category() Category   { return CategoryDoor }
func (Alarm) Category() Category  { return CategoryAlarm }
func (Fault) Category() Category  { return CategoryFault }
func (System) Category() Category { return CategorySystem }

func (Access) detail() {}
func (Door) detail()   {}
func (Alarm) detail()  {}
func (Fault) detail()  {}
func (System) detail() {}
