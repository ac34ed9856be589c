package game

// 阵营
const (
	FACTION_MAFIA    = "Mafia"
	FACTION_INNOCENT = "Innocent"
	FACTION_NEUTRAL  = "Neutral"
)

// 角色，与参数表中的 role 字段一一对应
const (
	ROLE_MAFIA      = "mafia"
	ROLE_GODFATHER  = "godfather"
	ROLE_TERRORIST  = "terrorist"
	ROLE_DOCTOR     = "doctor"
	ROLE_VIGILANTE  = "vigilante"
	ROLE_DETECTIVE  = "detective"
	ROLE_CITIZEN    = "citizen"
	ROLE_GAMEMASTER = "gamemaster"
)

// 死亡原因
const (
	CAUSE_MAFIA     = "mafia"
	CAUSE_BOMB      = "bomb"
	CAUSE_VIGILANTE = "vigilante"
	CAUSE_VOTE      = "vote"
	CAUSE_FLED      = "fled"
)

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`

	// 指向注册表中的只读模板，不做拷贝
	Role *RoleDefinition `json:"-"`

	// 当前阶段提交的选择，进入新阶段时清空
	Choice *Choice `json:"-"`

	// 整局只能使用一次的能力是否已经用掉
	Used map[string]bool `json:"-"`
}

// Choice 是玩家在当前阶段的待结算选择，Target 为空表示弃权
type Choice struct {
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
}

func (c *Choice) Abstained() bool {
	return c == nil || c.Target == ""
}

// Faction 只由角色推导，不单独存储
func (p *Player) Faction() string {
	if p.Role == nil {
		return FACTION_NEUTRAL
	}

	return p.Role.Faction
}

func (p *Player) RoleName() string {
	if p.Role == nil {
		return ""
	}

	return p.Role.Name
}

func (p *Player) IsGamemaster() bool {
	return p.RoleName() == ROLE_GAMEMASTER
}

// Counted 表示该玩家参与胜负判定
func (p *Player) Counted() bool {
	return p.Alive && p.Faction() != FACTION_NEUTRAL
}

func (p *Player) hasUsed(action string) bool {
	return p.Used != nil && p.Used[action]
}

func (p *Player) markUsed(action string) {
	if p.Used == nil {
		p.Used = make(map[string]bool)
	}

	p.Used[action] = true
}

// PlayerView 是对外暴露的玩家信息，角色只在死亡或游戏结束后公开
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`
	Role      string `json:"role,omitempty"`
}

// Snapshot 是某一时刻的对局快照
type Snapshot struct {
	GameID      string       `json:"game_id"`
	Stage       string       `json:"stage"`
	Seq         int          `json:"seq"`
	Round       int          `json:"round"`
	Players     []PlayerView `json:"players"`
	Verdict     *Verdict     `json:"verdict,omitempty"`
	Cancelled   bool         `json:"cancelled,omitempty"`
	Resolutions []Resolution `json:"resolutions"`
}
