package plan

// Money represents a monetary amount in the smallest currency unit.
// For example, R$6.46 would be Amount: 646, Currency: "BRL".
type Money struct {
	Amount   int64  `yaml:"amount" json:"amount"`
	Currency string `yaml:"currency" json:"currency"`
}

// Feature represents a plan-specific capability that can be enabled/disabled.
type Feature string

const (
	FeatureWorkoutBuilder   Feature = "workout_builder"
	FeatureNutritionPlans   Feature = "nutrition_plans"
	FeatureProgressReports  Feature = "progress_reports"
	FeatureWhiteLabel       Feature = "white_label"
	FeaturePrioritySupport  Feature = "priority_support"
	FeatureStudentMessaging Feature = "student_messaging"
)

// Plan describes a subscription tier and its student-count constraint.
// The ID field should match the payment provider's product/price ID so
// webhook events can be mapped back to a tier without a lookup table.
type Plan struct {
	ID                string    `yaml:"id" json:"id"`
	Name              string    `yaml:"name" json:"name"`
	Description       string    `yaml:"description" json:"description,omitempty"`
	Price             Money     `yaml:"price" json:"price"`
	StudentLimit      int64     `yaml:"student_limit" json:"student_limit"`
	ExtraStudentPrice Money     `yaml:"extra_student_price" json:"extra_student_price"`
	Features          []Feature `yaml:"features" json:"features,omitempty"`
	Public            bool      `yaml:"public" json:"public"`
}

// Fits reports whether the plan's student limit accommodates the given count.
func (p Plan) Fits(studentCount int64) bool {
	return p.StudentLimit >= studentCount
}
