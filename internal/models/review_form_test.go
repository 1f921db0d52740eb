package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func qa(answer string) QA {
	return QA{Question: "q", Answer: answer}
}

func strPtr(s string) *string { return &s }

func TestIsBuddyEvaluationComplete(t *testing.T) {
	tests := []struct {
		name string
		form ReviewForm
		want bool
	}{
		{
			name: "nil section",
			form: ReviewForm{},
			want: false,
		},
		{
			name: "all answers filled",
			form: ReviewForm{BuddyEvaluation: &BuddyEvaluation{
				Attitude:       qa("great"),
				Teamwork:       qa("solid"),
				Strengths:      qa("leads well"),
				AreasForGrowth: qa("patience"),
			}},
			want: true,
		},
		{
			name: "one answer empty",
			form: ReviewForm{BuddyEvaluation: &BuddyEvaluation{
				Attitude:       qa("great"),
				Teamwork:       qa("solid"),
				Strengths:      qa(""),
				AreasForGrowth: qa("patience"),
			}},
			want: false,
		},
		{
			name: "whitespace-only answer counts as empty",
			form: ReviewForm{BuddyEvaluation: &BuddyEvaluation{
				Attitude:       qa("great"),
				Teamwork:       qa("   \t"),
				Strengths:      qa("leads well"),
				AreasForGrowth: qa("patience"),
			}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.form.IsBuddyEvaluationComplete())
		})
	}
}

func TestIsJCReflectionComplete(t *testing.T) {
	filled := &JCReflection{
		EnjoyedMost: qa("campcraft"),
		Challenges:  qa("early mornings"),
		Learnings:   qa("knots"),
		Goals:       qa("lead a patrol"),
	}

	tests := []struct {
		name       string
		reflection *JCReflection
		preference *string
		want       bool
	}{
		{"nil section", nil, strPtr(PreferenceNewBuddy), false},
		{"filled with preference", filled, strPtr(PreferenceContinueSameBuddy), true},
		{"filled without preference", filled, nil, false},
		{
			"missing answer",
			&JCReflection{
				EnjoyedMost: qa("campcraft"),
				Challenges:  qa(" "),
				Learnings:   qa("knots"),
				Goals:       qa("lead a patrol"),
			},
			strPtr(PreferenceTakeBreak),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := ReviewForm{
				JCReflection:           tt.reflection,
				NextRotationPreference: tt.preference,
			}
			assert.Equal(t, tt.want, form.IsJCReflectionComplete())
		})
	}
}

func TestIsJCFeedbackComplete(t *testing.T) {
	tests := []struct {
		name     string
		feedback *JCFeedback
		want     bool
	}{
		{"nil section", nil, false},
		{"both answers filled", &JCFeedback{BuddySupport: qa("very supportive"), Suggestions: qa("more games")}, true},
		{"one answer whitespace", &JCFeedback{BuddySupport: qa("very supportive"), Suggestions: qa("  ")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := ReviewForm{JCFeedback: tt.feedback}
			assert.Equal(t, tt.want, form.IsJCFeedbackComplete())
		})
	}
}

// Submission cares about section presence, not trimmed completeness: a
// section full of whitespace answers is present but incomplete.
func TestHasAllSectionsIgnoresCompleteness(t *testing.T) {
	form := ReviewForm{
		BuddyEvaluation: &BuddyEvaluation{Attitude: qa(" ")},
		JCReflection:    &JCReflection{EnjoyedMost: qa(" ")},
		JCFeedback:      &JCFeedback{BuddySupport: qa(" ")},
	}

	assert.True(t, form.HasAllSections())
	assert.False(t, form.IsBuddyEvaluationComplete())
	assert.False(t, form.IsJCReflectionComplete())
	assert.False(t, form.IsJCFeedbackComplete())
}

func TestCompletenessState(t *testing.T) {
	form := ReviewForm{
		BuddyEvaluation: &BuddyEvaluation{
			Attitude:       qa("a"),
			Teamwork:       qa("b"),
			Strengths:      qa("c"),
			AreasForGrowth: qa("d"),
		},
	}

	state := form.CompletenessState()
	assert.True(t, state.BuddyEvaluation)
	assert.False(t, state.JCReflection)
	assert.False(t, state.JCFeedback)
}

func TestValidAgeGroup(t *testing.T) {
	assert.True(t, ValidAgeGroup(AgeGroupJunior))
	assert.True(t, ValidAgeGroup(AgeGroupAdvanced))
	assert.False(t, ValidAgeGroup("toddler"))
	assert.False(t, ValidAgeGroup(""))
}

func TestValidNextRotationPreference(t *testing.T) {
	for _, p := range NextRotationPreferences {
		assert.True(t, ValidNextRotationPreference(p))
	}
	assert.False(t, ValidNextRotationPreference("retire"))
}
