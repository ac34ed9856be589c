package game

import (
	"fmt"
	"math"
	"time"
)

// 参数类型
const (
	PARAM_KIND_INT  = "int"
	PARAM_KIND_BOOL = "bool"
)

// 平票处理策略
const (
	TIE_POLICY_NONE   = "none"
	TIE_POLICY_RANDOM = "random"
	TIE_POLICY_RUNOFF = "runoff"
)

// Parameter 是开局时由宿主提交的一项有序、带类型的参数
type Parameter struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
	Help  string `json:"help,omitempty"`

	// 数量类参数对应的角色
	Role string `json:"role,omitempty"`
	// 是否为主持人模式开关
	GamemasterMode bool `json:"gamemaster_mode,omitempty"`
}

// DefaultParameters 返回默认参数表，顺序固定
func DefaultParameters() []Parameter {
	return []Parameter{
		{
			Key:   "mafia",
			Name:  "Number of Mafiosi (mafia)",
			Kind:  PARAM_KIND_INT,
			Value: 1,
			Help:  "The mafiosi want to take control of the village. Together they choose one citizen to kill each night.",
			Role:  ROLE_MAFIA,
		},
		{
			Key:   "godfather",
			Name:  "Number of Godfathers (mafia)",
			Kind:  PARAM_KIND_INT,
			Value: 0,
			Help:  "A godfather is on the mafia side but looks innocent to the detective.",
			Role:  ROLE_GODFATHER,
		},
		{
			Key:   "terrorist",
			Name:  "Number of Terrorists (mafia)",
			Kind:  PARAM_KIND_INT,
			Value: 0,
			Help:  "A terrorist may commit a suicide attack on a night of their choice, dying with the target. The doctor cannot protect the target, but stops a terrorist they protect.",
			Role:  ROLE_TERRORIST,
		},
		{
			Key:   "doctor",
			Name:  "Number of Doctors",
			Kind:  PARAM_KIND_INT,
			Value: 0,
			Help:  "A doctor may protect one citizen each night. If the protected player is attacked, they survive.",
			Role:  ROLE_DOCTOR,
		},
		{
			Key:   "vigilante",
			Name:  "Number of Vigilantes",
			Kind:  PARAM_KIND_INT,
			Value: 0,
			Help:  "A vigilante may kill a resident on a night of their choice. They are on the side of the honest citizens.",
			Role:  ROLE_VIGILANTE,
		},
		{
			Key:   "detective",
			Name:  "Number of Detectives",
			Kind:  PARAM_KIND_INT,
			Value: 0,
			Help:  "A detective may find out, each night, which side a player is on.",
			Role:  ROLE_DETECTIVE,
		},
		{
			Key:            "gamemaster",
			Name:           "Gamemaster mode",
			Kind:           PARAM_KIND_BOOL,
			Value:          false,
			Help:           "When enabled the creator of the game becomes the GAMEMASTER and decides when each stage ends.",
			GamemasterMode: true,
		},
	}
}

// WithOverrides 按角色名覆盖数量，未知角色会追加成独立参数，由 ParseParameters 报错
func WithOverrides(params []Parameter, counts map[string]int, gamemasterMode bool) []Parameter {
	out := make([]Parameter, len(params))
	copy(out, params)

	seen := make(map[string]bool, len(counts))
	for i := range out {
		if out[i].GamemasterMode {
			out[i].Value = gamemasterMode
			continue
		}

		if n, ok := counts[out[i].Role]; ok {
			out[i].Value = n
			seen[out[i].Role] = true
		}
	}

	for role, n := range counts {
		if seen[role] {
			continue
		}

		out = append(out, Parameter{
			Key:   role,
			Name:  role,
			Kind:  PARAM_KIND_INT,
			Value: n,
			Role:  role,
		})
	}

	return out
}

// Settings 是参数表解析后的结果
type Settings struct {
	RoleCounts     map[string]int `json:"role_counts"`
	GamemasterMode bool           `json:"gamemaster_mode"`
}

func (s Settings) Count(role string) int {
	return s.RoleCounts[role]
}

// ParseParameters 校验并解析参数表，结构错误立即返回
func ParseParameters(params []Parameter) (Settings, error) {
	settings := Settings{
		RoleCounts: make(map[string]int),
	}

	if len(params) == 0 {
		return settings, configErr("parameters", "parameter list is empty")
	}

	for i, p := range params {
		field := fmt.Sprintf("parameters[%d]", i)
		if p.Key != "" {
			field = p.Key
		}

		if p.Value == nil {
			return settings, configErr(field, "missing value")
		}

		switch p.Kind {
		case PARAM_KIND_BOOL:
			b, ok := p.Value.(bool)
			if !ok {
				return settings, configErr(field, "expected a boolean, got %T", p.Value)
			}

			if p.GamemasterMode {
				settings.GamemasterMode = b
			}

		case PARAM_KIND_INT:
			n, err := toInt(p.Value)
			if err != nil {
				return settings, configErr(field, "%v", err)
			}

			if n < 0 {
				return settings, configErr(field, "count must not be negative, got %d", n)
			}

			if p.Role == "" {
				return settings, configErr(field, "count parameter has no role")
			}

			rd, err := lookupRole(p.Role)
			if err != nil {
				return settings, fmt.Errorf("parameter %s: %w", field, err)
			}

			if rd.Name == ROLE_GAMEMASTER {
				return settings, configErr(field, "the gamemaster is granted by gamemaster mode, not by count")
			}

			if _, dup := settings.RoleCounts[rd.Name]; dup {
				return settings, configErr(field, "role %q configured twice", rd.Name)
			}

			settings.RoleCounts[rd.Name] = n

		default:
			return settings, configErr(field, "unknown parameter kind %q", p.Kind)
		}
	}

	return settings, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, fmt.Errorf("integer %d out of range", n)
		}
		return int(n), nil
	case float64:
		// JSON 数字默认解码为 float64
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		// 2^63 本身无法表示为 int64，上界取开区间
		if n < math.MinInt || n >= -math.MinInt {
			return 0, fmt.Errorf("integer %v out of range", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// Rules 是引擎的可调规则，来自配置
type Rules struct {
	NightDuration time.Duration `json:"night_duration"`
	DayDuration   time.Duration `json:"day_duration"`
	WaitDuration  time.Duration `json:"wait_duration"`

	NightTiePolicy string `json:"night_tie_policy"`
	DayTiePolicy   string `json:"day_tie_policy"`

	// true 时黑手党人数追平即获胜，false 时需要严格多于
	MafiaWinsAtParity bool `json:"mafia_wins_at_parity"`
	// 所有有行动能力的玩家都提交后提前结束阶段
	EndWhenAllActed bool `json:"end_when_all_acted"`

	// 0 表示使用随机种子
	Seed uint64 `json:"seed"`

	MinPlayers int `json:"min_players"`
	MaxPlayers int `json:"max_players"`
}

func DefaultRules() Rules {
	return Rules{
		NightDuration:     60 * time.Second,
		DayDuration:       120 * time.Second,
		WaitDuration:      0,
		NightTiePolicy:    TIE_POLICY_NONE,
		DayTiePolicy:      TIE_POLICY_NONE,
		MafiaWinsAtParity: true,
		EndWhenAllActed:   true,
		MinPlayers:        3,
		MaxPlayers:        40,
	}
}

func (r Rules) Validate() error {
	if r.NightDuration < 0 {
		return configErr("night_duration", "must not be negative")
	}
	if r.DayDuration < 0 {
		return configErr("day_duration", "must not be negative")
	}
	if r.WaitDuration < 0 {
		return configErr("wait_duration", "must not be negative")
	}

	switch r.NightTiePolicy {
	case TIE_POLICY_NONE, TIE_POLICY_RANDOM:
	case TIE_POLICY_RUNOFF:
		return configErr("night_tie_policy", "runoff is only supported for the day vote")
	default:
		return configErr("night_tie_policy", "unknown tie policy %q", r.NightTiePolicy)
	}

	switch r.DayTiePolicy {
	case TIE_POLICY_NONE, TIE_POLICY_RANDOM, TIE_POLICY_RUNOFF:
	default:
		return configErr("day_tie_policy", "unknown tie policy %q", r.DayTiePolicy)
	}

	if r.MinPlayers < 1 {
		return configErr("min_players", "must be at least 1, got %d", r.MinPlayers)
	}
	if r.MaxPlayers < r.MinPlayers {
		return configErr("max_players", "must not be lower than min_players")
	}

	return nil
}
