package game

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// GameMachine 是游戏状态机，负责管理游戏状态和事件循环
type GameMachine struct {
	ctx     *GameContext
	handler StageHandler
	// 这是所有的玩家的请求汇总的通道
	reqCh chan RequestWrapper
	// 结束通道，用于通知游戏状态机退出事件循环
	doneCh <-chan struct{}

	booted bool

	// 以下字段可以在事件循环之外读取
	finished   atomic.Bool
	finishedCh chan struct{}
	finishOnce sync.Once
	final      atomic.Pointer[Snapshot]

	createdAt time.Time
}

func NewGameMachine(ctx *GameContext, doneCh <-chan struct{}) *GameMachine {
	if ctx.TmoCh == nil {
		ctx.TmoCh = make(chan RequestWrapper, 64)
	}

	return &GameMachine{
		ctx:        ctx,
		reqCh:      make(chan RequestWrapper, 64),
		doneCh:     doneCh,
		finishedCh: make(chan struct{}),
		createdAt:  time.Now(),
	}
}

func (gm *GameMachine) GetReqCh() chan RequestWrapper {
	return gm.reqCh
}

func (gm *GameMachine) GameID() string {
	return gm.ctx.GameID
}

func (gm *GameMachine) Start() {
	gm.boot()

	// 进入事件循环
	for !gm.IsFinished() {
		// 从请求通道或超时通道接收事件
		var req RequestWrapper

		select {
		case req = <-gm.reqCh:
			zap.L().Debug(
				"接收到玩家请求",
				zap.String("game_id", gm.ctx.GameID),
				zap.String("request_type", req.ReqType),
			)
		case req = <-gm.ctx.TmoCh:
			zap.L().Debug(
				"接收到超时事件",
				zap.String("game_id", gm.ctx.GameID),
			)
		case <-gm.doneCh:
			zap.L().Info(
				"收到退出信号，结束游戏状态机",
				zap.String("game_id", gm.ctx.GameID),
			)
			gm.cancel("shutdown")
			gm.checkFinished()
			return
		}

		gm.handle(req)
	}

	// 游戏结束后，协程应当自动退出，释放资源
	zap.L().Info(
		"游戏状态机已结束",
		zap.String("game_id", gm.ctx.GameID),
		zap.Any("verdict", gm.ctx.Verdict),
	)
}

// boot 发布开局信息，私下告知每个玩家身份，然后进入第一个阶段
func (gm *GameMachine) boot() {
	if gm.booted {
		return
	}
	gm.booted = true

	introduce(gm.ctx)

	first := STAGE_NIGHT
	if gm.ctx.GamemasterMode {
		gm.ctx.PendingStage = STAGE_NIGHT
		first = STAGE_WAITING
	}

	gm.ctx.GameStage = first
	gm.handler = gm.newHandler(first)
	gm.enter()
	gm.settle()
	gm.checkFinished()
}

// handle 是事件循环的唯一入口，同一局游戏的请求在这里串行处理
func (gm *GameMachine) handle(req RequestWrapper) {
	resp := gm.dispatch(req)

	if req.ReplyCh != nil {
		select {
		case req.ReplyCh <- resp:
		default:
			zap.L().Warn(
				"回复通道已满，丢弃响应",
				zap.String("game_id", gm.ctx.GameID),
				zap.String("request_type", req.ReqType),
			)
		}
	}

	// 先回复再标记结束，等待回复的调用方不会错过最后一个响应
	gm.checkFinished()
}

func (gm *GameMachine) dispatch(req RequestWrapper) ResponseWrapper {
	// 与阶段无关的请求由状态机直接处理
	switch req.ReqType {
	case REQ_SNAPSHOT:
		return WrapResponse(RESP_SNAPSHOT, gm.ctx.Snapshot())

	case REQ_MESSAGE:
		mreq := TryUnwrapMessageRequest(req)
		if mreq == nil {
			return WrapErrResponse(fmt.Errorf("%w: malformed message request", ErrInvalidAction))
		}

		p, err := gm.ctx.GetPlayer(mreq.PlayerID)
		if err != nil {
			return WrapErrResponse(err)
		}

		msg, deliver := ProcessMessage(gm.ctx, mreq.Channel, mreq.Message, p)
		return WrapResponse(RESP_MESSAGE, MessageResponse{Message: msg, Deliver: deliver})

	case REQ_CANCEL:
		reason := ""
		if creq := TryUnwrapCancelRequest(req); creq != nil {
			reason = creq.Reason
		}

		gm.cancel(reason)
		return WrapResponse(RESP_ACK, nil)
	}

	if gm.handler == nil {
		return WrapErrResponse(fmt.Errorf("%w: the game has not started", ErrInvalidAction))
	}

	err := gm.handler.OnHandle(gm.ctx, req)
	if err != nil {
		zap.L().Debug(
			"处理请求失败",
			zap.Error(err),
			zap.String("game_id", gm.ctx.GameID),
			zap.String("stage", gm.handler.Stage()),
			zap.String("request_type", req.ReqType),
		)

		// 可恢复的错误只告知操作者本人
		if id := requesterID(req); id != "" && IsRecoverable(err) {
			if _, ok := gm.ctx.Players[id]; ok {
				gm.ctx.Whisper(id, err.Error())
			}
		}
	}

	gm.settle()

	if err != nil {
		return WrapErrResponse(err)
	}

	return WrapResponse(RESP_ACK, nil)
}

// settle 在阶段发生变化时执行切换，新阶段的 OnEnter 可能再次切换
func (gm *GameMachine) settle() {
	for gm.ctx.GameStage != gm.handler.Stage() {
		gm.switchStage()
		gm.enter()
	}
}

func (gm *GameMachine) enter() {
	gm.ctx.StageSeq++

	zap.L().Debug(
		"进入新阶段",
		zap.String("game_id", gm.ctx.GameID),
		zap.String("stage", gm.ctx.GameStage),
		zap.Int("seq", gm.ctx.StageSeq),
	)

	gm.handler.OnEnter(gm.ctx)
}

func (gm *GameMachine) switchStage() {
	// 执行当前 handler 的 OnExit
	gm.handler.OnExit(gm.ctx)

	// 根据新状态创建对应的 handler
	gm.handler = gm.newHandler(gm.ctx.GameStage)
}

func (gm *GameMachine) newHandler(stage string) StageHandler {
	var handler StageHandler

	switch stage {
	case STAGE_WAITING:
		handler = NewWaitStageHandler()
	case STAGE_NIGHT:
		handler = NewNightStageHandler()
	case STAGE_DAY:
		handler = NewDayStageHandler()
	case STAGE_RUNOFF:
		handler = NewRunoffStageHandler()
	case STAGE_FINISHED:
		handler = NewFinishStageHandler()
	default:
		zap.L().Error(
			"未知的游戏阶段，强制结束游戏",
			zap.String("game_id", gm.ctx.GameID),
			zap.String("stage", stage),
		)
		gm.ctx.Cancelled = true
		gm.ctx.GameStage = STAGE_FINISHED
		handler = NewFinishStageHandler()
	}

	// 设置 onSwitch 回调
	onSwitch := func(nextStage string) {
		gm.ctx.GameStage = nextStage
	}

	handler.SetOnSwitch(onSwitch)

	return handler
}

// cancel 取消定时器并直接进入结束阶段，不再结算
func (gm *GameMachine) cancel(reason string) {
	if gm.ctx.GameStage == STAGE_FINISHED {
		return
	}

	zap.L().Info(
		"游戏被取消",
		zap.String("game_id", gm.ctx.GameID),
		zap.String("stage", gm.ctx.GameStage),
		zap.String("reason", reason),
	)

	gm.ctx.ClearTimeout()
	gm.ctx.Cancelled = true
	gm.ctx.GameStage = STAGE_FINISHED

	if gm.handler == nil {
		gm.handler = gm.newHandler(STAGE_FINISHED)
		gm.enter()
	}

	gm.settle()
}

func (gm *GameMachine) checkFinished() {
	if gm.ctx.GameStage != STAGE_FINISHED {
		return
	}

	gm.finishOnce.Do(func() {
		snap := gm.ctx.Snapshot()
		gm.final.Store(&snap)
		gm.finished.Store(true)
		close(gm.finishedCh)
	})
}

func (gm *GameMachine) IsFinished() bool {
	return gm.finished.Load()
}

// Finished 在游戏结束时关闭
func (gm *GameMachine) Finished() <-chan struct{} {
	return gm.finishedCh
}

// FinalSnapshot 返回游戏结束时的快照，游戏未结束时返回 nil
func (gm *GameMachine) FinalSnapshot() *Snapshot {
	return gm.final.Load()
}

func (gm *GameMachine) CreatedAt() time.Time {
	return gm.createdAt
}

func requesterID(req RequestWrapper) string {
	if r := TryUnwrapSubmitActionRequest(req); r != nil {
		return r.PlayerID
	}

	if r := TryUnwrapEndStageRequest(req); r != nil {
		return r.ControllerID
	}

	return ""
}
