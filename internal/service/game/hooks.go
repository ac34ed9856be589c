package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	GAME_NAME    = "Mafia"
	GAME_VERSION = "0.1.0"
)

// Definition 是提供给宿主平台的游戏元数据
type Definition struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description"`
	MinPlayers  int         `json:"min_players"`
	MaxPlayers  int         `json:"max_players"`
	Parameters  []Parameter `json:"parameters"`
}

func NewDefinition(rules Rules) Definition {
	return Definition{
		Name:        GAME_NAME,
		Version:     GAME_VERSION,
		Description: "An online version of Dimitry Davidoff's party game.",
		MinPlayers:  rules.MinPlayers,
		MaxPlayers:  rules.MaxPlayers,
		Parameters:  DefaultParameters(),
	}
}

type Seat struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StartContext 是宿主平台开局时提供的全部信息
type StartContext struct {
	GameID      string
	Players     []Seat
	InitiatorID string
	Parameters  []Parameter
	Rules       Rules

	Host      Host
	Scheduler Scheduler
	DoneCh    <-chan struct{}
}

// Start 解析参数并分配角色，返回尚未启动的状态机
// 任何错误都发生在玩家可见的状态变化之前
func Start(sc StartContext) (*GameMachine, error) {
	settings, err := ParseParameters(sc.Parameters)
	if err != nil {
		return nil, err
	}

	if err := sc.Rules.Validate(); err != nil {
		return nil, err
	}

	if n := len(sc.Players); n < sc.Rules.MinPlayers {
		return nil, fmt.Errorf("%w: %d players, at least %d required", ErrInsufficientPlayers, n, sc.Rules.MinPlayers)
	} else if n > sc.Rules.MaxPlayers {
		return nil, configErr("players", "%d players, at most %d allowed", n, sc.Rules.MaxPlayers)
	}

	gamemasterID := ""
	if settings.GamemasterMode {
		if sc.InitiatorID == "" {
			return nil, configErr("gamemaster", "gamemaster mode requires an initiator")
		}
		gamemasterID = sc.InitiatorID
	}

	players := make([]*Player, 0, len(sc.Players))
	for _, seat := range sc.Players {
		id := seat.ID
		if id == "" {
			id = newPlayerID()
		}

		players = append(players, &Player{
			ID:        id,
			Name:      seat.Name,
			Alive:     true,
			Connected: true,
		})
	}

	rng := NewRand(sc.Rules.Seed)

	roles, err := Assign(players, settings.RoleCounts, rng, gamemasterID)
	if err != nil {
		return nil, err
	}

	gameID := sc.GameID
	if gameID == "" {
		gameID = newGameID()
	}

	host := sc.Host
	if host == nil {
		host = NopHost{}
	}

	scheduler := sc.Scheduler
	if scheduler == nil {
		scheduler = RealScheduler{}
	}

	ctx := &GameContext{
		GameID:         gameID,
		Players:        make(map[string]*Player, len(players)),
		Order:          make([]string, 0, len(players)),
		Rules:          sc.Rules,
		Settings:       settings,
		GamemasterMode: settings.GamemasterMode,
		Host:           host,
		Scheduler:      scheduler,
		Rng:            rng,
		TmoCh:          make(chan RequestWrapper, 64),
	}

	for _, p := range players {
		p.Role = roles[p.ID]
		ctx.Players[p.ID] = p
		ctx.Order = append(ctx.Order, p.ID)
	}

	zap.L().Info(
		"游戏创建成功",
		zap.String("game_id", gameID),
		zap.Int("players", len(players)),
		zap.Any("roles", settings.RoleCounts),
		zap.Bool("gamemaster_mode", settings.GamemasterMode),
	)

	return NewGameMachine(ctx, sc.DoneCh), nil
}

// OnDisconnect 通知状态机某个玩家已经断开，不会阻塞调用方
func OnDisconnect(gm *GameMachine, playerID string) bool {
	if gm.IsFinished() {
		return false
	}

	select {
	case gm.reqCh <- WrapRequest(REQ_DISCONNECT, DisconnectRequest{PlayerID: playerID}):
		return true
	default:
		zap.L().Warn(
			"请求通道已满，丢弃断线通知",
			zap.String("game_id", gm.ctx.GameID),
			zap.String("player_id", playerID),
		)
		return false
	}
}

// ProcessMessage 根据发送者的频道权限决定是否投递消息，并为特殊频道加上标记
func ProcessMessage(ctx *GameContext, channel, message string, p *Player) (string, bool) {
	if name, ok := strings.CutPrefix(channel, PRIVATE_CHANNEL_PREFIX); ok {
		return privateMessage(ctx, name, message, p)
	}

	perm := ChannelsFor(ctx.GameStage, p)[channel]
	if !perm.Write {
		return "", false
	}

	switch channel {
	case CHANNEL_DEAD:
		message = "[dead] " + message
	case CHANNEL_MAFIA:
		message = "[mafia] " + message
	}

	if p.IsGamemaster() {
		message = "[gamemaster] " + message
	}

	return message, true
}

// privateMessage 处理主持人与玩家之间的私聊，发送者会收到一份回显
func privateMessage(ctx *GameContext, name, message string, p *Player) (string, bool) {
	var recipient *Player
	for _, other := range ctx.OrderedPlayers() {
		if other.Name == name {
			recipient = other
			break
		}
	}

	if recipient == nil || recipient.ID == p.ID {
		return "", false
	}

	if !p.IsGamemaster() && !recipient.IsGamemaster() {
		return "", false
	}

	ctx.Whisper(p.ID, fmt.Sprintf("To %s: %s", recipient.Name, message))

	message = "[private] " + message
	if p.IsGamemaster() {
		message = "[gamemaster] " + message
	}

	return message, true
}

// introduce 公布角色配置并私下告知每个玩家的身份
func introduce(ctx *GameContext) {
	s := ctx.Settings

	ctx.Broadcast(CHANNEL_GENERAL, "You are in the village of Salem. The mafia is lurking and seriously threatens the lives of the villagers...")
	ctx.Broadcast(CHANNEL_GENERAL, fmt.Sprintf(
		"The local police believe there are %s, %s and %s among you. Beware!",
		plural(s.Count(ROLE_MAFIA), "mafioso", "mafiosi"),
		plural(s.Count(ROLE_TERRORIST), "terrorist", "terrorists"),
		plural(s.Count(ROLE_GODFATHER), "godfather", "godfathers"),
	))
	ctx.Broadcast(CHANNEL_GENERAL, fmt.Sprintf(
		"To help the innocents there are %s, %s and %s.",
		plural(s.Count(ROLE_DOCTOR), "doctor", "doctors"),
		plural(s.Count(ROLE_VIGILANTE), "vigilante", "vigilantes"),
		plural(s.Count(ROLE_DETECTIVE), "detective", "detectives"),
	))

	mafia := make([]string, 0)
	for _, p := range ctx.OrderedPlayers() {
		if p.Faction() == FACTION_MAFIA {
			mafia = append(mafia, fmt.Sprintf("%s (%s)", p.Name, p.Role.Title))
		}
	}

	for _, p := range ctx.OrderedPlayers() {
		ctx.Whisper(p.ID, fmt.Sprintf("You are the %s. %s", p.Role.Title, p.Role.Description))

		if p.Faction() == FACTION_MAFIA || p.IsGamemaster() {
			ctx.Whisper(p.ID, "The mafia: "+strings.Join(mafia, ", ")+".")
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}

	return fmt.Sprintf("%d %s", n, many)
}

// newPlayerID 为没有平台 ID 的玩家生成按时间排序的 ID
func newPlayerID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// newGameID 取随机部分的末 8 位，便于在日志和聊天中引用
func newGameID() string {
	id := newPlayerID()
	return id[len(id)-8:]
}
