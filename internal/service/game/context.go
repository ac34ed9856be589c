package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// GameContext 是单局游戏的全部状态，只由状态机的事件循环读写
type GameContext struct {
	GameID    string
	GameStage string
	// 每进入一个阶段实例加一，用于识别过期的超时事件
	StageSeq int
	// 第几个夜晚
	Round int

	Players map[string]*Player
	// 玩家加入顺序，所有遍历都按这个顺序进行以保证结果确定
	Order []string

	Rules          Rules
	Settings       Settings
	GamemasterMode bool

	// 主持人模式下，等待阶段结束后要进入的阶段
	PendingStage string
	// 白天平票进入决胜投票时的候选人
	RunoffCandidates []string

	Verdict     *Verdict
	Cancelled   bool
	Resolutions []Resolution

	Host      Host
	Scheduler Scheduler
	Rng       *rand.Rand

	// 超时事件通道，由定时器回调写入
	TmoCh chan RequestWrapper

	stopTimer func() bool
}

func (gc *GameContext) GetGamemaster() *Player {
	for _, id := range gc.Order {
		if p := gc.Players[id]; p.IsGamemaster() {
			return p
		}
	}

	return nil
}

func (gc *GameContext) GetPlayer(id string) (*Player, error) {
	p, ok := gc.Players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotInGame, id)
	}

	return p, nil
}

// OrderedPlayers 按加入顺序返回所有玩家
func (gc *GameContext) OrderedPlayers() []*Player {
	players := make([]*Player, 0, len(gc.Order))
	for _, id := range gc.Order {
		players = append(players, gc.Players[id])
	}

	return players
}

func (gc *GameContext) GetAlivePlayers() []*Player {
	players := make([]*Player, 0, len(gc.Order))
	for _, p := range gc.OrderedPlayers() {
		if p.Alive && !p.IsGamemaster() {
			players = append(players, p)
		}
	}

	return players
}

// CountAlive 统计参与胜负判定的存活玩家
func (gc *GameContext) CountAlive() (mafia, innocent int) {
	for _, p := range gc.Players {
		if !p.Counted() {
			continue
		}

		switch p.Faction() {
		case FACTION_MAFIA:
			mafia++
		case FACTION_INNOCENT:
			innocent++
		}
	}

	return mafia, innocent
}

// CountConnected 统计仍在线且参与判定的玩家
func (gc *GameContext) CountConnected() int {
	n := 0
	for _, p := range gc.Players {
		if p.Connected && !p.IsGamemaster() {
			n++
		}
	}

	return n
}

// CountVotes 统计存活玩家在当前阶段对 targetID 的某一动作的票数
func (gc *GameContext) CountVotes(action, targetID string) int {
	votes := 0
	for _, p := range gc.Players {
		if !p.Alive || p.Choice == nil {
			continue
		}

		if p.Choice.Action == action && p.Choice.Target == targetID {
			votes++
		}
	}

	return votes
}

// Tally 返回某一动作的计票结果，只统计最新的选择
func (gc *GameContext) Tally(action string) map[string]int {
	counts := make(map[string]int)
	for _, p := range gc.Players {
		if !p.Alive || p.Choice.Abstained() {
			continue
		}

		if p.Choice.Action == action {
			counts[p.Choice.Target]++
		}
	}

	return counts
}

func (gc *GameContext) Broadcast(channel, text string) {
	gc.Host.Broadcast(channel, text)
}

func (gc *GameContext) Whisper(playerID, text string) {
	gc.Host.Whisper(playerID, text)
}

func (gc *GameContext) PlayerInfo(channel, playerID, text string) {
	gc.Host.PlayerInfo(channel, playerID, text)
}

// SetTimeout 为当前阶段实例设置超时，超时事件带上阶段序号
func (gc *GameContext) SetTimeout(d time.Duration) {
	gc.ClearTimeout()

	if d <= 0 {
		return
	}

	stage := gc.GameStage
	seq := gc.StageSeq
	tmoCh := gc.TmoCh
	gameID := gc.GameID

	gc.stopTimer = gc.Scheduler.AfterFunc(d, func() {
		req := WrapRequest(REQ_TIMEOUT, TimeoutRequest{Stage: stage, Seq: seq})

		select {
		case tmoCh <- req:
		default:
			zap.L().Warn(
				"发送超时事件失败：超时通道已满",
				zap.String("game_id", gameID),
				zap.String("stage", stage),
			)
		}
	})
}

func (gc *GameContext) ClearTimeout() {
	if gc.stopTimer != nil {
		gc.stopTimer()
		gc.stopTimer = nil
	}
}

// Snapshot 生成当前状态的只读副本
func (gc *GameContext) Snapshot() Snapshot {
	over := gc.GameStage == STAGE_FINISHED

	players := make([]PlayerView, 0, len(gc.Order))
	for _, p := range gc.OrderedPlayers() {
		view := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Alive:     p.Alive,
			Connected: p.Connected,
		}

		if over || !p.Alive || p.IsGamemaster() {
			view.Role = p.RoleName()
		}

		players = append(players, view)
	}

	var verdict *Verdict
	if gc.Verdict != nil {
		v := *gc.Verdict
		verdict = &v
	}

	return Snapshot{
		GameID:      gc.GameID,
		Stage:       gc.GameStage,
		Seq:         gc.StageSeq,
		Round:       gc.Round,
		Players:     players,
		Verdict:     verdict,
		Cancelled:   gc.Cancelled,
		Resolutions: append([]Resolution(nil), gc.Resolutions...),
	}
}
