package game

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// 游戏阶段：
// 1. 等待阶段（Wait）：主持人模式下每次结算后暂停，由主持人决定何时继续
// 2. 夜晚阶段（Night）：黑手党选择目标，医生、侦探、义警、恐怖分子行动
// 3. 白天阶段（Day）：所有存活玩家投票处决一人
// 4. 决胜阶段（Runoff）：白天平票时，只在平票候选人之间重新投票
// 5. 结束阶段（Over）：宣布胜利方并公开所有身份
const (
	STAGE_WAITING  = "wait"
	STAGE_NIGHT    = "night"
	STAGE_DAY      = "day"
	STAGE_RUNOFF   = "runoff"
	STAGE_FINISHED = "over"
)

type StageHandler interface {
	Stage() string

	OnEnter(ctx *GameContext)
	OnHandle(ctx *GameContext, req RequestWrapper) error
	OnExit(ctx *GameContext)

	SetOnSwitch(func(nextStage string))
}

var errUnsupportedRequest = errors.New("request not supported in this stage")

// advance 计算结算后的下一阶段：已分出胜负或被取消时直接结束，主持人模式下先进入等待阶段
func advance(ctx *GameContext, onSwitch func(string), next string) {
	if ctx.Verdict != nil || ctx.Cancelled {
		onSwitch(STAGE_FINISHED)
		return
	}

	if ctx.GamemasterMode {
		ctx.PendingStage = next
		onSwitch(STAGE_WAITING)
		return
	}

	onSwitch(next)
}

// checkController 校验提前结束阶段的请求，ControllerID 为空表示宿主平台发起
func checkController(ctx *GameContext, req *EndStageRequest) error {
	if req.ControllerID == "" {
		return nil
	}

	gm := ctx.GetGamemaster()
	if gm == nil || !ctx.GamemasterMode || gm.ID != req.ControllerID {
		return fmt.Errorf("%w: only the gamemaster can end the stage", ErrInvalidAction)
	}

	return nil
}

// isStale 判断定时器或结束请求是否属于已经过去的阶段实例
func isStale(ctx *GameContext, seq int) bool {
	if seq == 0 || seq == ctx.StageSeq {
		return false
	}

	zap.L().Debug(
		"忽略过期的阶段事件",
		zap.String("game_id", ctx.GameID),
		zap.String("stage", ctx.GameStage),
		zap.Int("seq", seq),
		zap.Int("current_seq", ctx.StageSeq),
	)

	return true
}

// 等待阶段只在主持人模式下出现
type waitStageHandler struct {
	onSwitch func(string)
	resolved bool
}

func NewWaitStageHandler() *waitStageHandler {
	return &waitStageHandler{}
}

func (wsh *waitStageHandler) Stage() string {
	return STAGE_WAITING
}

func (wsh *waitStageHandler) OnEnter(ctx *GameContext) {
	if ctx.PendingStage == "" {
		ctx.PendingStage = STAGE_NIGHT
	}

	// 主持人已经离开，不再等待
	if !ctx.GamemasterMode {
		wsh.resume(ctx)
		return
	}

	ctx.Broadcast(CHANNEL_GENERAL, "The gamemaster is preparing what comes next.")

	info := StageInfo{
		GameID:   ctx.GameID,
		Stage:    STAGE_WAITING,
		Seq:      ctx.StageSeq,
		Round:    ctx.Round,
		Duration: ctx.Rules.WaitDuration,
		Prompts:  []Prompt{},
	}
	if gm := ctx.GetGamemaster(); gm != nil {
		info.ControllerID = gm.ID
	}
	ctx.Host.StageEntered(info)

	ctx.SetTimeout(ctx.Rules.WaitDuration)
}

func (wsh *waitStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	// 等待阶段只处理 EndStage、Timeout 和 Disconnect 请求
	if req := TryUnwrapEndStageRequest(req); req != nil {
		if isStale(ctx, req.Seq) {
			return nil
		}

		if err := checkController(ctx, req); err != nil {
			return err
		}

		wsh.resume(ctx)
		return nil
	}

	if req := TryUnwrapTimeoutRequest(req); req != nil {
		if !isStale(ctx, req.Seq) {
			wsh.resume(ctx)
		}
		return nil
	}

	if req := TryUnwrapDisconnectRequest(req); req != nil {
		if err := onPlayerExit(ctx, req.PlayerID); err != nil {
			return err
		}

		if ctx.Verdict != nil || ctx.Cancelled || !ctx.GamemasterMode {
			wsh.resume(ctx)
		}
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidAction, errUnsupportedRequest)
}

func (wsh *waitStageHandler) resume(ctx *GameContext) {
	if wsh.resolved {
		return
	}
	wsh.resolved = true

	ctx.ClearTimeout()

	if ctx.Verdict != nil || ctx.Cancelled {
		wsh.onSwitch(STAGE_FINISHED)
		return
	}

	next := ctx.PendingStage
	ctx.PendingStage = ""
	wsh.onSwitch(next)
}

func (wsh *waitStageHandler) OnExit(ctx *GameContext) {
	ctx.ClearTimeout()
}

func (wsh *waitStageHandler) SetOnSwitch(onSwitch func(string)) {
	wsh.onSwitch = onSwitch
}

// actionStage 是夜晚、白天和决胜阶段共用的收集-结算流程
// resolved 保证每个阶段实例只结算一次
type actionStage struct {
	onSwitch func(string)
	resolved bool
	resolve  func(ctx *GameContext)
}

func (as *actionStage) open(ctx *GameContext, d time.Duration) {
	for _, p := range ctx.Players {
		p.Choice = nil
	}

	info := StageInfo{
		GameID:   ctx.GameID,
		Stage:    ctx.GameStage,
		Seq:      ctx.StageSeq,
		Round:    ctx.Round,
		Duration: d,
		Prompts:  prompts(ctx),
	}
	if gm := ctx.GetGamemaster(); gm != nil && ctx.GamemasterMode {
		info.ControllerID = gm.ID
	}
	ctx.Host.StageEntered(info)

	// 没有可以行动的玩家，结算为空操作
	if len(eligibleActors(ctx)) == 0 {
		zap.L().Debug(
			"当前阶段没有可以行动的玩家",
			zap.String("game_id", ctx.GameID),
			zap.String("stage", ctx.GameStage),
		)
		as.finish(ctx)
		return
	}

	ctx.SetTimeout(d)
}

func (as *actionStage) finish(ctx *GameContext) {
	if as.resolved {
		return
	}
	as.resolved = true

	ctx.ClearTimeout()
	as.resolve(ctx)
}

func (as *actionStage) handle(ctx *GameContext, req RequestWrapper) error {
	if req := TryUnwrapSubmitActionRequest(req); req != nil {
		if as.resolved {
			return fmt.Errorf("%w: the stage is closing", ErrInvalidAction)
		}

		if err := Submit(ctx, req.PlayerID, req.Action, req.TargetID); err != nil {
			return err
		}

		if ctx.Rules.EndWhenAllActed && allActed(ctx) {
			as.finish(ctx)
		}
		return nil
	}

	if req := TryUnwrapTimeoutRequest(req); req != nil {
		if !isStale(ctx, req.Seq) {
			as.finish(ctx)
		}
		return nil
	}

	if req := TryUnwrapEndStageRequest(req); req != nil {
		if isStale(ctx, req.Seq) {
			return nil
		}

		if err := checkController(ctx, req); err != nil {
			return err
		}

		as.finish(ctx)
		return nil
	}

	if req := TryUnwrapDisconnectRequest(req); req != nil {
		if err := onPlayerExit(ctx, req.PlayerID); err != nil {
			return err
		}

		if ctx.Verdict != nil || ctx.Cancelled {
			as.resolved = true
			ctx.ClearTimeout()
			as.onSwitch(STAGE_FINISHED)
			return nil
		}

		if ctx.Rules.EndWhenAllActed && allActed(ctx) {
			as.finish(ctx)
		}
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidAction, errUnsupportedRequest)
}

func (as *actionStage) OnExit(ctx *GameContext) {
	ctx.ClearTimeout()
}

func (as *actionStage) SetOnSwitch(onSwitch func(string)) {
	as.onSwitch = onSwitch
}

// 夜晚阶段处理器
type nightStageHandler struct {
	actionStage
}

func NewNightStageHandler() *nightStageHandler {
	nsh := &nightStageHandler{}
	nsh.resolve = nsh.afterNight
	return nsh
}

func (nsh *nightStageHandler) Stage() string {
	return STAGE_NIGHT
}

func (nsh *nightStageHandler) OnEnter(ctx *GameContext) {
	ctx.Round++
	ctx.Broadcast(CHANNEL_GENERAL, fmt.Sprintf("Night %d falls on the village. Everyone goes to sleep.", ctx.Round))
	ctx.Broadcast(CHANNEL_MAFIA, "Mafia, choose your victim.")

	nsh.open(ctx, ctx.Rules.NightDuration)
}

func (nsh *nightStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	return nsh.handle(ctx, req)
}

func (nsh *nightStageHandler) afterNight(ctx *GameContext) {
	res := resolveNight(ctx)
	ctx.Resolutions = append(ctx.Resolutions, res)

	zap.L().Info(
		"夜晚结算完成",
		zap.String("game_id", ctx.GameID),
		zap.Int("round", ctx.Round),
		zap.Int("deaths", len(res.Deaths)),
	)

	advance(ctx, nsh.onSwitch, STAGE_DAY)
}

// 白天阶段处理器，runoff 为 true 时只能投给平票候选人
type dayStageHandler struct {
	actionStage
	runoff bool
}

func NewDayStageHandler() *dayStageHandler {
	dsh := &dayStageHandler{}
	dsh.resolve = dsh.afterDay
	return dsh
}

func NewRunoffStageHandler() *dayStageHandler {
	dsh := NewDayStageHandler()
	dsh.runoff = true
	return dsh
}

func (dsh *dayStageHandler) Stage() string {
	if dsh.runoff {
		return STAGE_RUNOFF
	}

	return STAGE_DAY
}

func (dsh *dayStageHandler) OnEnter(ctx *GameContext) {
	if dsh.runoff {
		ctx.Broadcast(CHANNEL_GENERAL, fmt.Sprintf("Runoff vote between %s.", joinNames(ctx, ctx.RunoffCandidates)))
	} else {
		ctx.RunoffCandidates = nil
		ctx.Broadcast(CHANNEL_GENERAL, "The village wakes up. Vote for the player you want to execute.")
	}

	dsh.open(ctx, ctx.Rules.DayDuration)
}

func (dsh *dayStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	return dsh.handle(ctx, req)
}

func (dsh *dayStageHandler) afterDay(ctx *GameContext) {
	var candidates []string
	if dsh.runoff {
		candidates = ctx.RunoffCandidates
	}

	res, runoff := resolveDay(ctx, candidates)
	ctx.Resolutions = append(ctx.Resolutions, res)

	zap.L().Info(
		"白天结算完成",
		zap.String("game_id", ctx.GameID),
		zap.String("stage", dsh.Stage()),
		zap.Int("round", ctx.Round),
		zap.Int("deaths", len(res.Deaths)),
		zap.Strings("tied", res.Tied),
	)

	if dsh.runoff {
		ctx.RunoffCandidates = nil
	}

	if runoff {
		advance(ctx, dsh.onSwitch, STAGE_RUNOFF)
		return
	}

	advance(ctx, dsh.onSwitch, STAGE_NIGHT)
}

// 结束阶段处理器
type finishStageHandler struct {
	onSwitch func(string)
}

func NewFinishStageHandler() *finishStageHandler {
	return &finishStageHandler{}
}

func (fsh *finishStageHandler) Stage() string {
	return STAGE_FINISHED
}

func (fsh *finishStageHandler) OnEnter(ctx *GameContext) {
	ctx.ClearTimeout()

	for _, p := range ctx.Players {
		p.Choice = nil
	}

	if ctx.Verdict == nil {
		ctx.Broadcast(CHANNEL_GENERAL, "The game has been cancelled.")
	} else {
		ctx.Broadcast(CHANNEL_GENERAL, ctx.Verdict.Reason)
		switch ctx.Verdict.Winner {
		case WINNER_DRAW:
			ctx.Broadcast(CHANNEL_GENERAL, "Nobody wins.")
		default:
			ctx.Broadcast(CHANNEL_GENERAL, fmt.Sprintf("The %s side wins!", ctx.Verdict.Winner))
		}
	}

	for _, p := range ctx.OrderedPlayers() {
		if p.Role == nil {
			continue
		}
		ctx.Broadcast(CHANNEL_GENERAL, fmt.Sprintf("%s was the %s.", p.Name, p.Role.Title))
	}

	ctx.Host.StageEntered(StageInfo{
		GameID:  ctx.GameID,
		Stage:   STAGE_FINISHED,
		Seq:     ctx.StageSeq,
		Round:   ctx.Round,
		Prompts: []Prompt{},
	})
}

func (fsh *finishStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	// 游戏结束后只记录玩家离线
	if req := TryUnwrapDisconnectRequest(req); req != nil {
		if p, ok := ctx.Players[req.PlayerID]; ok {
			p.Connected = false
		}
		return nil
	}

	return ErrGameOver
}

func (fsh *finishStageHandler) OnExit(ctx *GameContext) {
}

func (fsh *finishStageHandler) SetOnSwitch(onSwitch func(string)) {
	fsh.onSwitch = onSwitch
}

// onPlayerExit 处理玩家离开：存活玩家视为死亡，主持人离开则关闭主持人模式
// 之后重新判定胜负，在线玩家不足两人时取消游戏
func onPlayerExit(ctx *GameContext, playerID string) error {
	p, err := ctx.GetPlayer(playerID)
	if err != nil {
		return err
	}

	if !p.Connected {
		return nil
	}
	p.Connected = false

	if p.IsGamemaster() {
		ctx.GamemasterMode = false
		ctx.Broadcast(CHANNEL_GENERAL, "The gamemaster has left. The game goes on without them.")
	} else if p.Alive {
		p.Alive = false
		p.Choice = nil
		ctx.Broadcast(CHANNEL_GENERAL, deathMessage(p, CAUSE_FLED))
	}

	zap.L().Info(
		"玩家离开游戏",
		zap.String("game_id", ctx.GameID),
		zap.String("player_id", p.ID),
		zap.String("stage", ctx.GameStage),
	)

	if ctx.Verdict == nil {
		ctx.Verdict = CheckEnd(ctx)
	}

	if ctx.Verdict == nil && ctx.CountConnected() < 2 {
		ctx.Cancelled = true
	}

	return nil
}
