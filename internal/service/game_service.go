package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"openparty-mafia/internal/service/dto"
	"openparty-mafia/internal/service/game"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrGameNotFound = errors.New("游戏不存在")
	ErrGameBusy     = errors.New("游戏无法及时处理请求")
)

// HostFactory 为每局游戏构建一个独立的宿主实例
type HostFactory func(svc *GameService, gameID string) game.Host

type GameServiceOptions struct {
	Rules game.Rules
	// 请求中没有指定角色配置时使用
	DefaultRoles map[string]int

	NewHost   HostFactory
	Scheduler game.Scheduler

	RequestTimeout  time.Duration
	CleanupInterval time.Duration
}

type GameService struct {
	state *gameServiceState
	opts  GameServiceOptions
}

type gameServiceState struct {
	mu sync.RWMutex

	// 均为从游戏 ID 到实体的映射
	games   map[string]*game.GameMachine
	doneChs map[string]chan struct{}

	cleanUpDone chan struct{}
	closeOnce   sync.Once
}

func NewGameService(opts GameServiceOptions) *GameService {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	state := &gameServiceState{
		games:       make(map[string]*game.GameMachine),
		doneChs:     make(map[string]chan struct{}),
		cleanUpDone: make(chan struct{}),
	}

	// 启动一个 goroutine 定期清理已经结束的游戏
	go startCleanupLoop(state, opts.CleanupInterval)

	return &GameService{
		state: state,
		opts:  opts,
	}
}

func startCleanupLoop(state *gameServiceState, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-state.cleanUpDone:
			return

		case <-ticker.C:
			state.mu.Lock()

			for gameID, gm := range state.games {
				if !isGameValid(gm) {
					zap.S().Infof("游戏 %s 已经结束，开始清理", gameID)

					close(state.doneChs[gameID])
					delete(state.doneChs, gameID)
					delete(state.games, gameID)
				}
			}

			state.mu.Unlock()
		}
	}
}

// Close 停止清理协程，并通知所有仍在进行的游戏退出
func (gs *GameService) Close() {
	gs.state.closeOnce.Do(func() {
		close(gs.state.cleanUpDone)

		gs.state.mu.Lock()
		defer gs.state.mu.Unlock()

		for gameID, doneCh := range gs.state.doneChs {
			close(doneCh)
			delete(gs.state.doneChs, gameID)
		}
	})
}

func (gs *GameService) Definition() game.Definition {
	return game.NewDefinition(gs.opts.Rules)
}

func (gs *GameService) CreateGame(req dto.CreateGameRequest) (dto.CreateGameResponse, error) {
	if len(req.Players) == 0 {
		return dto.CreateGameResponse{}, errors.New("玩家列表不能为空")
	}

	gameID := uuid.New().String()[:8]

	players := make([]dto.Player, 0, len(req.Players))
	seats := make([]game.Seat, 0, len(req.Players))
	for _, p := range req.Players {
		if p.Name == "" {
			return dto.CreateGameResponse{}, errors.New("玩家名称不能为空")
		}

		if p.ID == "" {
			p.ID = uuid.New().String()[:8]
		}

		players = append(players, p)
		seats = append(seats, game.Seat{ID: p.ID, Name: p.Name})
	}

	roles := req.Roles
	if roles == nil {
		roles = gs.opts.DefaultRoles
	}

	var host game.Host
	if gs.opts.NewHost != nil {
		host = gs.opts.NewHost(gs, gameID)
	}

	doneCh := make(chan struct{})

	gm, err := game.Start(game.StartContext{
		GameID:      gameID,
		Players:     seats,
		InitiatorID: req.InitiatorID,
		Parameters:  game.WithOverrides(game.DefaultParameters(), roles, req.GamemasterMode),
		Rules:       gs.opts.Rules,
		Host:        host,
		Scheduler:   gs.opts.Scheduler,
		DoneCh:      doneCh,
	})
	if err != nil {
		zap.S().Warnf("游戏创建失败：%v", err)
		return dto.CreateGameResponse{}, err
	}

	gs.state.mu.Lock()
	gs.state.games[gameID] = gm
	gs.state.doneChs[gameID] = doneCh
	gs.state.mu.Unlock()

	// 每局游戏在独立的 goroutine 中运行自己的事件循环
	go gm.Start()

	zap.S().Infof("游戏 %s 已创建，共 %d 名玩家", gameID, len(players))

	return dto.CreateGameResponse{
		GameID:  gameID,
		Players: players,
	}, nil
}

func (gs *GameService) SubmitAction(req dto.ActionRequest) error {
	_, err := gs.send(req.GameID, game.WrapRequest(game.REQ_SUBMIT_ACTION, game.SubmitActionRequest{
		PlayerID: req.PlayerID,
		Action:   req.Action,
		TargetID: req.TargetID,
	}))
	return err
}

func (gs *GameService) EndStage(req dto.EndStageRequest) error {
	_, err := gs.send(req.GameID, game.WrapRequest(game.REQ_END_STAGE, game.EndStageRequest{
		ControllerID: req.ControllerID,
		Seq:          req.Seq,
	}))
	return err
}

func (gs *GameService) ProcessMessage(req dto.MessageRequest) (dto.MessageResponse, error) {
	resp, err := gs.send(req.GameID, game.WrapRequest(game.REQ_MESSAGE, game.MessageRequest{
		PlayerID: req.PlayerID,
		Channel:  req.Channel,
		Message:  req.Message,
	}))
	if err != nil {
		return dto.MessageResponse{}, err
	}

	msg, ok := resp.Data.(game.MessageResponse)
	if !ok {
		return dto.MessageResponse{}, fmt.Errorf("游戏 %s 返回了意外的响应类型 %s", req.GameID, resp.RespType)
	}

	return dto.MessageResponse{Message: msg.Message, Deliver: msg.Deliver}, nil
}

// Disconnect 不等待状态机处理，断线通知总是尽快返回
func (gs *GameService) Disconnect(gameID, playerID string) error {
	gm, err := gs.getGame(gameID)
	if err != nil {
		return err
	}

	if !game.OnDisconnect(gm, playerID) {
		if gm.IsFinished() {
			return game.ErrGameOver
		}
		return ErrGameBusy
	}

	zap.S().Debugf("游戏 %s 玩家 %s 断开连接", gameID, playerID)
	return nil
}

func (gs *GameService) CancelGame(gameID, reason string) error {
	_, err := gs.send(gameID, game.WrapRequest(game.REQ_CANCEL, game.CancelRequest{Reason: reason}))
	return err
}

// Snapshot 返回游戏的公开状态，结束后返回最终快照
func (gs *GameService) Snapshot(gameID string) (game.Snapshot, error) {
	gm, err := gs.getGame(gameID)
	if err != nil {
		return game.Snapshot{}, err
	}

	if final := gm.FinalSnapshot(); final != nil {
		return *final, nil
	}

	resp, err := gs.send(gameID, game.WrapRequest(game.REQ_SNAPSHOT, nil))
	if err != nil {
		// 请求期间游戏刚好结束
		if final := gm.FinalSnapshot(); final != nil {
			return *final, nil
		}
		return game.Snapshot{}, err
	}

	snap, ok := resp.Data.(game.Snapshot)
	if !ok {
		return game.Snapshot{}, fmt.Errorf("游戏 %s 返回了意外的响应类型 %s", gameID, resp.RespType)
	}

	return snap, nil
}

// Done 返回游戏结束时关闭的通道
func (gs *GameService) Done(gameID string) (<-chan struct{}, error) {
	gm, err := gs.getGame(gameID)
	if err != nil {
		return nil, err
	}

	return gm.Finished(), nil
}

func (gs *GameService) getGame(gameID string) (*game.GameMachine, error) {
	gs.state.mu.RLock()
	defer gs.state.mu.RUnlock()

	gm := gs.state.games[gameID]
	if gm == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	return gm, nil
}

// send 把请求交给游戏协程并等待回复，两个方向都有超时
func (gs *GameService) send(gameID string, req game.RequestWrapper) (game.ResponseWrapper, error) {
	gm, err := gs.getGame(gameID)
	if err != nil {
		return game.ResponseWrapper{}, err
	}

	if gm.IsFinished() {
		return game.ResponseWrapper{}, game.ErrGameOver
	}

	replyCh := make(chan game.ResponseWrapper, 1)
	req.ReplyCh = replyCh

	reqTimer := time.NewTimer(gs.opts.RequestTimeout)

	select {
	case gm.GetReqCh() <- req:
		if !reqTimer.Stop() {
			select {
			case <-reqTimer.C:
			default:
			}
		}

	case <-reqTimer.C:
		zap.S().Warnf("游戏 %s 无法及时接收请求 %s", gameID, req.ReqType)
		return game.ResponseWrapper{}, ErrGameBusy
	}

	resTimer := time.NewTimer(gs.opts.RequestTimeout)
	defer resTimer.Stop()

	select {
	case resp := <-replyCh:
		return resp, resp.Err

	case <-gm.Finished():
		// 最后一个请求的回复先于结束信号写入
		select {
		case resp := <-replyCh:
			return resp, resp.Err
		default:
			return game.ResponseWrapper{}, game.ErrGameOver
		}

	case <-resTimer.C:
		zap.S().Warnf("游戏 %s 请求 %s 响应超时", gameID, req.ReqType)
		return game.ResponseWrapper{}, ErrGameBusy
	}
}
