package game

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// 可用动作
const (
	ACTION_CHOOSE      = "choose"
	ACTION_BOMB        = "bomb"
	ACTION_PROTECT     = "protect"
	ACTION_SHOOT       = "shoot"
	ACTION_INVESTIGATE = "investigate"
	ACTION_VOTE        = "vote"
)

// 动作类型，目前只有单选目标一种
const (
	ACTION_TYPE_SELECT = "select"
)

// 频道
const (
	CHANNEL_GENERAL    = "general"
	CHANNEL_MAFIA      = "mafia"
	CHANNEL_DEAD       = "dead"
	CHANNEL_GAMEMASTER = "gamemaster"

	PRIVATE_CHANNEL_PREFIX = "player-"
)

type Permission struct {
	Read  bool `json:"r"`
	Write bool `json:"w"`
}

// ActionSpec 是角色在某阶段暴露的能力，本身不保存状态
type ActionSpec struct {
	Name   string
	Type   string
	Submit string
	Stages []string

	AllowSelf   bool
	Revisable   bool
	OncePerGame bool

	// 额外的目标限制，可为空
	ValidTarget func(ctx *GameContext, actor, target *Player) bool
	// 选择被记录后的副作用，例如公布实时票数
	Execute func(ctx *GameContext, actor *Player, previous *Choice)
}

func (as ActionSpec) IsAvailable(p *Player, stage string) bool {
	if p == nil || !p.Alive {
		return false
	}

	if !slices.Contains(as.Stages, stage) {
		return false
	}

	if as.OncePerGame && p.hasUsed(as.Name) {
		return false
	}

	return true
}

type RoleDefinition struct {
	Name        string
	Title       string
	Description string
	Faction     string

	Actions  map[string]ActionSpec
	Channels map[string]Permission

	// Actions 的稳定顺序，用于生成提示
	ActionOrder []string
}

func (rd *RoleDefinition) Action(name string) (ActionSpec, bool) {
	spec, ok := rd.Actions[name]
	return spec, ok
}

func (rd *RoleDefinition) clone() *RoleDefinition {
	c := *rd

	c.Actions = make(map[string]ActionSpec, len(rd.Actions))
	for name, spec := range rd.Actions {
		spec.Stages = slices.Clone(spec.Stages)
		c.Actions[name] = spec
	}
	c.Channels = maps.Clone(rd.Channels)
	c.ActionOrder = slices.Clone(rd.ActionOrder)

	return &c
}

// 注册表在进程启动时构建，此后只读
var registry = buildRegistry()

type roleRegistry struct {
	ordered []*RoleDefinition
	byName  map[string]*RoleDefinition
}

// ListRoles 按固定顺序返回所有角色
// ListRoles 返回注册表的副本，修改副本不影响注册表
func ListRoles() []*RoleDefinition {
	roles := make([]*RoleDefinition, 0, len(registry.ordered))
	for _, rd := range registry.ordered {
		roles = append(roles, rd.clone())
	}

	return roles
}

// GetRole 同样返回副本
func GetRole(name string) (*RoleDefinition, error) {
	rd, err := lookupRole(name)
	if err != nil {
		return nil, err
	}

	return rd.clone(), nil
}

// lookupRole 返回注册表中共享的定义，引擎内部只读使用
func lookupRole(name string) (*RoleDefinition, error) {
	rd, ok := registry.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}

	return rd, nil
}

func mustRole(name string) *RoleDefinition {
	rd, err := lookupRole(name)
	if err != nil {
		panic(err)
	}

	return rd
}

func buildRegistry() roleRegistry {
	// 黑手党频道平时只读，夜里由 ChannelsFor 开放发言
	mafiaChannels := map[string]Permission{
		CHANNEL_MAFIA: {Read: true},
	}

	roles := []*RoleDefinition{
		{
			Name:        ROLE_MAFIA,
			Title:       "Mafioso",
			Description: "You must murder every innocent villager. Each night the mafia chooses one victim together.",
			Faction:     FACTION_MAFIA,
			Actions:     actions(mafiaVoteAction(), dayVoteAction()),
			Channels:    mafiaChannels,
		},
		{
			Name:        ROLE_GODFATHER,
			Title:       "Godfather",
			Description: "You lead the mafia. The detective sees you as an innocent.",
			Faction:     FACTION_MAFIA,
			Actions:     actions(mafiaVoteAction(), dayVoteAction()),
			Channels:    mafiaChannels,
		},
		{
			Name:        ROLE_TERRORIST,
			Title:       "Terrorist",
			Description: "Once per game, on a night of your choice, you may blow yourself up together with a target. A doctor cannot save your target, but a doctor protecting you stops you.",
			Faction:     FACTION_MAFIA,
			Actions: actions(ActionSpec{
				Name:        ACTION_BOMB,
				Type:        ACTION_TYPE_SELECT,
				Submit:      "Detonate",
				Stages:      []string{STAGE_NIGHT},
				OncePerGame: true,
				Execute:     confirmTo("You will detonate next to %s tonight."),
			}, dayVoteAction()),
			Channels: mafiaChannels,
		},
		{
			Name:        ROLE_DOCTOR,
			Title:       "Doctor",
			Description: "Each night you may protect one citizen. If their life is threatened they survive.",
			Faction:     FACTION_INNOCENT,
			Actions: actions(ActionSpec{
				Name:      ACTION_PROTECT,
				Type:      ACTION_TYPE_SELECT,
				Submit:    "Protect",
				Stages:    []string{STAGE_NIGHT},
				AllowSelf: true,
				Execute:   confirmTo("You will watch over %s tonight."),
			}, dayVoteAction()),
		},
		{
			Name:        ROLE_VIGILANTE,
			Title:       "Vigilante",
			Description: "Once per game, on a night of your choice, you may kill a resident. You are on the side of the honest citizens.",
			Faction:     FACTION_INNOCENT,
			Actions: actions(ActionSpec{
				Name:        ACTION_SHOOT,
				Type:        ACTION_TYPE_SELECT,
				Submit:      "Shoot",
				Stages:      []string{STAGE_NIGHT},
				OncePerGame: true,
				Execute:     confirmTo("You will shoot %s tonight."),
			}, dayVoteAction()),
		},
		{
			Name:        ROLE_DETECTIVE,
			Title:       "Detective",
			Description: "Each night you may find out which side a player is on.",
			Faction:     FACTION_INNOCENT,
			Actions: actions(ActionSpec{
				Name:    ACTION_INVESTIGATE,
				Type:    ACTION_TYPE_SELECT,
				Submit:  "Investigate",
				Stages:  []string{STAGE_NIGHT},
				Execute: confirmTo("You will investigate %s tonight."),
			}, dayVoteAction()),
		},
		{
			Name:        ROLE_CITIZEN,
			Title:       "Citizen",
			Description: "Find the mafia and vote them out during the day.",
			Faction:     FACTION_INNOCENT,
			Actions:     actions(dayVoteAction()),
		},
		{
			Name:        ROLE_GAMEMASTER,
			Title:       "Gamemaster",
			Description: "You run the game: you decide when each stage ends and can talk privately to any player.",
			Faction:     FACTION_NEUTRAL,
			Actions:     actions(),
			Channels: map[string]Permission{
				CHANNEL_GENERAL:    {Read: true, Write: true},
				CHANNEL_MAFIA:      {Read: true},
				CHANNEL_DEAD:       {Read: true},
				CHANNEL_GAMEMASTER: {Read: true, Write: true},
			},
		},
	}

	reg := roleRegistry{
		ordered: roles,
		byName:  make(map[string]*RoleDefinition, len(roles)),
	}

	for _, rd := range roles {
		if rd.Channels == nil {
			rd.Channels = map[string]Permission{}
		}

		for name := range rd.Actions {
			rd.ActionOrder = append(rd.ActionOrder, name)
		}
		// 夜间能力在前，白天投票在后
		slices.SortFunc(rd.ActionOrder, func(a, b string) int {
			if (a == ACTION_VOTE) != (b == ACTION_VOTE) {
				if a == ACTION_VOTE {
					return 1
				}
				return -1
			}
			return strings.Compare(a, b)
		})

		reg.byName[rd.Name] = rd
	}

	return reg
}

func actions(specs ...ActionSpec) map[string]ActionSpec {
	m := make(map[string]ActionSpec, len(specs))
	for _, s := range specs {
		m[s.Name] = s
	}

	return m
}

func mafiaVoteAction() ActionSpec {
	return ActionSpec{
		Name:      ACTION_CHOOSE,
		Type:      ACTION_TYPE_SELECT,
		Submit:    "Vote",
		Stages:    []string{STAGE_NIGHT},
		Revisable: true,
		Execute:   publishVote(CHANNEL_MAFIA),
	}
}

func dayVoteAction() ActionSpec {
	return ActionSpec{
		Name:      ACTION_VOTE,
		Type:      ACTION_TYPE_SELECT,
		Submit:    "Vote",
		Stages:    []string{STAGE_DAY, STAGE_RUNOFF},
		Revisable: true,
		ValidTarget: func(ctx *GameContext, actor, target *Player) bool {
			// 决胜投票只能投给平票的候选人
			if ctx.GameStage == STAGE_RUNOFF {
				return slices.Contains(ctx.RunoffCandidates, target.ID)
			}
			return true
		},
		Execute: publishVote(CHANNEL_GENERAL),
	}
}

// publishVote 公布投票并重新计算受影响目标的实时票数
func publishVote(channel string) func(ctx *GameContext, actor *Player, previous *Choice) {
	return func(ctx *GameContext, actor *Player, previous *Choice) {
		current := actor.Choice

		if current.Abstained() {
			ctx.Broadcast(channel, fmt.Sprintf("%s abstains", actor.Name))
		} else {
			target := ctx.Players[current.Target]
			ctx.Broadcast(channel, fmt.Sprintf("%s votes %s", actor.Name, target.Name))
		}

		affected := make([]string, 0, 2)
		if !previous.Abstained() && previous.Action == current.Action {
			affected = append(affected, previous.Target)
		}
		if !current.Abstained() && !slices.Contains(affected, current.Target) {
			affected = append(affected, current.Target)
		}

		for _, id := range affected {
			target, ok := ctx.Players[id]
			if !ok {
				continue
			}

			votes := ctx.CountVotes(current.Action, id)
			ctx.PlayerInfo(channel, id, fmt.Sprintf("%s : %d", target.Name, votes))
		}
	}
}

func confirmTo(format string) func(ctx *GameContext, actor *Player, previous *Choice) {
	return func(ctx *GameContext, actor *Player, previous *Choice) {
		if actor.Choice.Abstained() {
			ctx.Whisper(actor.ID, "You will stay home tonight.")
			return
		}

		target := ctx.Players[actor.Choice.Target]
		ctx.Whisper(actor.ID, fmt.Sprintf(format, target.Name))
	}
}

// ChannelsFor 结合角色声明和当前状态计算玩家的频道权限
func ChannelsFor(stage string, p *Player) map[string]Permission {
	perms := make(map[string]Permission)

	if p.IsGamemaster() {
		for ch, perm := range p.Role.Channels {
			perms[ch] = perm
		}
		return perms
	}

	if !p.Alive {
		perms[CHANNEL_GENERAL] = Permission{Read: true}
		perms[CHANNEL_DEAD] = Permission{Read: true, Write: true}
		return perms
	}

	// 夜里村民都在睡觉
	perms[CHANNEL_GENERAL] = Permission{Read: true, Write: stage != STAGE_NIGHT}

	if p.Role != nil {
		for ch, perm := range p.Role.Channels {
			perms[ch] = perm
		}
	}

	if perm, ok := perms[CHANNEL_MAFIA]; ok && p.Faction() == FACTION_MAFIA && stage == STAGE_NIGHT {
		perm.Write = true
		perms[CHANNEL_MAFIA] = perm
	}

	return perms
}

// DetectiveView 返回侦探调查时看到的阵营，教父总是显示为无辜者
func DetectiveView(p *Player) string {
	if p.RoleName() == ROLE_GODFATHER {
		return FACTION_INNOCENT
	}

	return p.Faction()
}
