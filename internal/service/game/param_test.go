package game

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultParameters(t *testing.T) {
	settings, err := ParseParameters(DefaultParameters())
	require.NoError(t, err)

	assert.Equal(t, 1, settings.Count(ROLE_MAFIA))
	for _, role := range []string{ROLE_GODFATHER, ROLE_TERRORIST, ROLE_DOCTOR, ROLE_VIGILANTE, ROLE_DETECTIVE} {
		assert.Zero(t, settings.Count(role), role)
	}
	assert.False(t, settings.GamemasterMode)
}

func TestParseParametersAcceptsJSONNumbers(t *testing.T) {
	params := DefaultParameters()
	params[0].Value = float64(2)

	settings, err := ParseParameters(params)
	require.NoError(t, err)
	assert.Equal(t, 2, settings.Count(ROLE_MAFIA))
}

func TestParseParametersErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func([]Parameter) []Parameter
		target error
	}{
		{
			name:   "empty",
			mutate: func([]Parameter) []Parameter { return nil },
			target: ErrConfiguration,
		},
		{
			name: "negative count",
			mutate: func(p []Parameter) []Parameter {
				p[3].Value = -1
				return p
			},
			target: ErrConfiguration,
		},
		{
			name: "fractional count",
			mutate: func(p []Parameter) []Parameter {
				p[0].Value = 1.5
				return p
			},
			target: ErrConfiguration,
		},
		{
			name: "count beyond int range",
			mutate: func(p []Parameter) []Parameter {
				p[0].Value = 1e300
				return p
			},
			target: ErrConfiguration,
		},
		{
			name: "infinite count",
			mutate: func(p []Parameter) []Parameter {
				p[0].Value = math.Inf(1)
				return p
			},
			target: ErrConfiguration,
		},
		{
			name: "wrong kind for toggle",
			mutate: func(p []Parameter) []Parameter {
				p[6].Value = "yes"
				return p
			},
			target: ErrConfiguration,
		},
		{
			name: "missing value",
			mutate: func(p []Parameter) []Parameter {
				p[1].Value = nil
				return p
			},
			target: ErrConfiguration,
		},
		{
			name: "unknown role",
			mutate: func(p []Parameter) []Parameter {
				return append(p, Parameter{Key: "werewolf", Kind: PARAM_KIND_INT, Value: 1, Role: "werewolf"})
			},
			target: ErrUnknownRole,
		},
		{
			name: "duplicate role",
			mutate: func(p []Parameter) []Parameter {
				return append(p, Parameter{Key: "again", Kind: PARAM_KIND_INT, Value: 1, Role: ROLE_MAFIA})
			},
			target: ErrConfiguration,
		},
		{
			name: "gamemaster by count",
			mutate: func(p []Parameter) []Parameter {
				return append(p, Parameter{Key: "gm", Kind: PARAM_KIND_INT, Value: 1, Role: ROLE_GAMEMASTER})
			},
			target: ErrConfiguration,
		},
		{
			name: "unknown kind",
			mutate: func(p []Parameter) []Parameter {
				p[0].Kind = "string"
				return p
			},
			target: ErrConfiguration,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseParameters(tc.mutate(DefaultParameters()))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)
		})
	}
}

func TestConfigurationErrorNamesTheField(t *testing.T) {
	params := DefaultParameters()
	params[3].Value = -2

	_, err := ParseParameters(params)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "doctor", cfgErr.Field)
	assert.False(t, IsRecoverable(err))
}

func TestWithOverrides(t *testing.T) {
	params := WithOverrides(DefaultParameters(), map[string]int{
		ROLE_MAFIA:  2,
		ROLE_DOCTOR: 1,
	}, true)

	settings, err := ParseParameters(params)
	require.NoError(t, err)

	assert.Equal(t, 2, settings.Count(ROLE_MAFIA))
	assert.Equal(t, 1, settings.Count(ROLE_DOCTOR))
	assert.True(t, settings.GamemasterMode)

	// 默认参数表不受影响
	assert.Equal(t, 1, DefaultParameters()[0].Value)
}

func TestWithOverridesUnknownRoleFailsParsing(t *testing.T) {
	params := WithOverrides(DefaultParameters(), map[string]int{"werewolf": 1}, false)

	_, err := ParseParameters(params)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRulesValidate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	cases := map[string]func(*Rules){
		"negative night":  func(r *Rules) { r.NightDuration = -time.Second },
		"negative day":    func(r *Rules) { r.DayDuration = -time.Second },
		"negative wait":   func(r *Rules) { r.WaitDuration = -time.Second },
		"night runoff":    func(r *Rules) { r.NightTiePolicy = TIE_POLICY_RUNOFF },
		"unknown policy":  func(r *Rules) { r.DayTiePolicy = "coin" },
		"zero min":        func(r *Rules) { r.MinPlayers = 0 },
		"max below min":   func(r *Rules) { r.MaxPlayers = 2 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			rules := DefaultRules()
			mutate(&rules)
			assert.ErrorIs(t, rules.Validate(), ErrConfiguration)
		})
	}
}
