package models

import (
	"strings"
	"time"
)

// Age groups a Junior Commander can be assigned to.
const (
	AgeGroupJunior       = "junior"
	AgeGroupIntermediate = "intermediate"
	AgeGroupSenior       = "senior"
	AgeGroupAdvanced     = "advanced"
)

// AgeGroups lists all valid age groups.
var AgeGroups = []string{AgeGroupJunior, AgeGroupIntermediate, AgeGroupSenior, AgeGroupAdvanced}

// Next-rotation preferences a JC can express in their reflection.
const (
	PreferenceContinueSameBuddy = "continue_same_buddy"
	PreferenceNewBuddy          = "new_buddy"
	PreferenceTakeBreak         = "take_break"
	PreferenceGraduate          = "graduate"
)

// NextRotationPreferences lists all valid preferences.
var NextRotationPreferences = []string{
	PreferenceContinueSameBuddy,
	PreferenceNewBuddy,
	PreferenceTakeBreak,
	PreferenceGraduate,
}

// Review form lifecycle. in_progress is set the moment any section is first
// written; submitted is terminal.
const (
	StatusDraft      = "draft"
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
)

// QA is one question/answer pair. The question text is captured at answer
// time so later wording edits never change historical responses.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// BuddyEvaluation is the buddy's assessment of the rotation.
type BuddyEvaluation struct {
	Attitude       QA         `json:"attitude"`
	Teamwork       QA         `json:"teamwork"`
	Strengths      QA         `json:"strengths"`
	AreasForGrowth QA         `json:"areasForGrowth"`
	CompletedAt    time.Time  `json:"completedAt"`
	CompletedBy    *string    `json:"completedBy,omitempty"`
}

// JCReflection is the Junior Commander's reflection on the rotation. The
// next-rotation preference is stored on the form itself, not in the section.
type JCReflection struct {
	EnjoyedMost QA        `json:"enjoyedMost"`
	Challenges  QA        `json:"challenges"`
	Learnings   QA        `json:"learnings"`
	Goals       QA        `json:"goals"`
	CompletedAt time.Time `json:"completedAt"`
	CompletedBy *string   `json:"completedBy,omitempty"`
}

// JCFeedback is the Junior Commander's feedback about their buddy.
type JCFeedback struct {
	BuddySupport QA        `json:"buddySupport"`
	Suggestions  QA        `json:"suggestions"`
	CompletedAt  time.Time `json:"completedAt"`
	CompletedBy  *string   `json:"completedBy,omitempty"`
}

// ReviewForm is one rotation-cycle evaluation pairing one Buddy with one
// Junior Commander.
type ReviewForm struct {
	ID            string `json:"id" db:"id"`
	SchemaVersion int    `json:"schema_version" db:"schema_version"`

	BuddyAccessToken string     `json:"-" db:"buddy_access_token"`
	JCAccessToken    string     `json:"-" db:"jc_access_token"`
	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty" db:"token_expires_at"`

	BuddyResponsesVisibleToJC bool       `json:"buddy_responses_visible_to_jc" db:"buddy_responses_visible_to_jc"`
	JCResponsesVisibleToBuddy bool       `json:"jc_responses_visible_to_buddy" db:"jc_responses_visible_to_buddy"`
	VisibilityChangedAt       *time.Time `json:"visibility_changed_at,omitempty" db:"visibility_changed_at"`
	VisibilityChangedBy       *string    `json:"visibility_changed_by,omitempty" db:"visibility_changed_by"`

	RotationYear           int       `json:"rotation_year" db:"rotation_year"`
	RotationQuarter        int       `json:"rotation_quarter" db:"rotation_quarter"`
	BuddyUserID            string    `json:"buddy_user_id" db:"buddy_user_id"`
	BuddyName              string    `json:"buddy_name" db:"buddy_name"`
	JuniorCommanderUserID  *string   `json:"junior_commander_user_id,omitempty" db:"junior_commander_user_id"`
	JuniorCommanderName    string    `json:"junior_commander_name" db:"junior_commander_name"`
	AgeGroup               string    `json:"age_group" db:"age_group"`
	EvaluationDate         time.Time `json:"evaluation_date" db:"evaluation_date"`
	NextRotationPreference *string   `json:"next_rotation_preference,omitempty" db:"next_rotation_preference"`

	BuddyEvaluation *BuddyEvaluation `json:"buddy_evaluation,omitempty" db:"buddy_evaluation"`
	JCReflection    *JCReflection    `json:"jc_reflection,omitempty" db:"jc_reflection"`
	JCFeedback      *JCFeedback      `json:"jc_feedback,omitempty" db:"jc_feedback"`

	Status      string     `json:"status" db:"status"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	SubmittedBy *string    `json:"submitted_by,omitempty" db:"submitted_by"`

	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Completeness is the derived progress state of a form. It is computed on
// read and never stored.
type Completeness struct {
	BuddyEvaluation bool `json:"buddy_evaluation"`
	JCReflection    bool `json:"jc_reflection"`
	JCFeedback      bool `json:"jc_feedback"`
}

func answered(pairs ...QA) bool {
	for _, qa := range pairs {
		if strings.TrimSpace(qa.Answer) == "" {
			return false
		}
	}
	return true
}

// IsBuddyEvaluationComplete reports whether the buddy evaluation section
// exists and every answer is non-empty after trimming whitespace.
func (f *ReviewForm) IsBuddyEvaluationComplete() bool {
	e := f.BuddyEvaluation
	if e == nil {
		return false
	}
	return answered(e.Attitude, e.Teamwork, e.Strengths, e.AreasForGrowth)
}

// IsJCReflectionComplete reports whether the JC reflection section exists,
// every answer is non-empty after trimming, and a next-rotation preference
// has been recorded.
func (f *ReviewForm) IsJCReflectionComplete() bool {
	r := f.JCReflection
	if r == nil {
		return false
	}
	if f.NextRotationPreference == nil {
		return false
	}
	return answered(r.EnjoyedMost, r.Challenges, r.Learnings, r.Goals)
}

// IsJCFeedbackComplete reports whether the JC feedback section exists and
// both answers are non-empty after trimming.
func (f *ReviewForm) IsJCFeedbackComplete() bool {
	fb := f.JCFeedback
	if fb == nil {
		return false
	}
	return answered(fb.BuddySupport, fb.Suggestions)
}

// CompletenessState computes the per-section completeness flags.
func (f *ReviewForm) CompletenessState() Completeness {
	return Completeness{
		BuddyEvaluation: f.IsBuddyEvaluationComplete(),
		JCReflection:    f.IsJCReflectionComplete(),
		JCFeedback:      f.IsJCFeedbackComplete(),
	}
}

// HasAllSections reports whether every section has been saved at least once.
// Submission checks presence, not the trimmed completeness predicates: a
// section of all-whitespace answers still counts as present.
func (f *ReviewForm) HasAllSections() bool {
	return f.BuddyEvaluation != nil && f.JCReflection != nil && f.JCFeedback != nil
}

// ValidAgeGroup reports whether s is a known age group.
func ValidAgeGroup(s string) bool {
	for _, g := range AgeGroups {
		if g == s {
			return true
		}
	}
	return false
}

// ValidNextRotationPreference reports whether s is a known preference.
func ValidNextRotationPreference(s string) bool {
	for _, p := range NextRotationPreferences {
		if p == s {
			return true
		}
	}
	return false
}
