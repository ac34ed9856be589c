package game

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedMessage struct {
	Channel string
	To      string
	Text    string
}

type recordingHost struct {
	mu         sync.Mutex
	broadcasts []recordedMessage
	whispers   []recordedMessage
	infos      []recordedMessage
	stages     []StageInfo
}

func (h *recordingHost) Broadcast(channel, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = append(h.broadcasts, recordedMessage{Channel: channel, Text: text})
}

func (h *recordingHost) Whisper(playerID, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.whispers = append(h.whispers, recordedMessage{To: playerID, Text: text})
}

func (h *recordingHost) PlayerInfo(channel, playerID, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.infos = append(h.infos, recordedMessage{Channel: channel, To: playerID, Text: text})
}

func (h *recordingHost) StageEntered(info StageInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, info)
}

func (h *recordingHost) whispersTo(playerID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0)
	for _, m := range h.whispers {
		if m.To == playerID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (h *recordingHost) broadcastsOn(channel string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0)
	for _, m := range h.broadcasts {
		if m.Channel == channel {
			out = append(out, m.Text)
		}
	}
	return out
}

func (h *recordingHost) lastStage() StageInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stages[len(h.stages)-1]
}

func (h *recordingHost) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.broadcasts) + len(h.whispers) + len(h.infos) + len(h.stages)
}

func containsText(texts []string, sub string) bool {
	for _, t := range texts {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

// manualScheduler 只在测试显式触发时执行回调
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()

		pending := !t.stopped && !t.fired
		t.stopped = true
		return pending
	}
}

// fire 触发所有仍在等待的定时器
func (s *manualScheduler) fire() int {
	s.mu.Lock()
	pending := make([]*manualTimer, 0)
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			pending = append(pending, t)
		}
	}
	s.mu.Unlock()

	for _, t := range pending {
		t.f()
	}
	return len(pending)
}

func (s *manualScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type seat struct {
	id   string
	role string
}

func testRules() Rules {
	rules := DefaultRules()
	rules.Seed = 1
	rules.EndWhenAllActed = false
	return rules
}

// newTestContext 按给定角色直接组装对局，跳过随机分配
func newTestContext(t *testing.T, rules Rules, seats ...seat) (*GameContext, *recordingHost, *manualScheduler) {
	t.Helper()

	host := &recordingHost{}
	sched := &manualScheduler{}

	ctx := &GameContext{
		GameID:   "test",
		Players:  make(map[string]*Player, len(seats)),
		Order:    make([]string, 0, len(seats)),
		Rules:    rules,
		Settings: Settings{RoleCounts: make(map[string]int)},
		Host:     host,
		Rng:      NewRand(rules.Seed),
		TmoCh:    make(chan RequestWrapper, 64),

		Scheduler: sched,
	}

	for _, s := range seats {
		rd, err := lookupRole(s.role)
		require.NoError(t, err)

		ctx.Players[s.id] = &Player{
			ID:        s.id,
			Name:      strings.ToUpper(s.id[:1]) + s.id[1:],
			Alive:     true,
			Connected: true,
			Role:      rd,
		}
		ctx.Order = append(ctx.Order, s.id)

		if rd.Name == ROLE_GAMEMASTER {
			ctx.GamemasterMode = true
			ctx.Settings.GamemasterMode = true
		} else {
			ctx.Settings.RoleCounts[rd.Name]++
		}
	}

	return ctx, host, sched
}

func newTestMachine(t *testing.T, rules Rules, seats ...seat) (*GameMachine, *recordingHost, *manualScheduler) {
	t.Helper()

	ctx, host, sched := newTestContext(t, rules, seats...)
	return NewGameMachine(ctx, nil), host, sched
}

func send(gm *GameMachine, req RequestWrapper) ResponseWrapper {
	reply := make(chan ResponseWrapper, 1)
	req.ReplyCh = reply
	gm.handle(req)
	return <-reply
}

func submit(gm *GameMachine, playerID, action, targetID string) error {
	return send(gm, WrapRequest(REQ_SUBMIT_ACTION, SubmitActionRequest{
		PlayerID: playerID,
		Action:   action,
		TargetID: targetID,
	})).Err
}

func endStage(gm *GameMachine, controllerID string) error {
	return send(gm, WrapRequest(REQ_END_STAGE, EndStageRequest{ControllerID: controllerID})).Err
}

func disconnect(gm *GameMachine, playerID string) error {
	return send(gm, WrapRequest(REQ_DISCONNECT, DisconnectRequest{PlayerID: playerID})).Err
}

// fireTimeout 触发定时器并把产生的超时事件交给状态机
func fireTimeout(t *testing.T, gm *GameMachine, sched *manualScheduler) {
	t.Helper()

	require.Equal(t, 1, sched.fire(), "expected exactly one armed timer")
	select {
	case req := <-gm.ctx.TmoCh:
		gm.handle(req)
	default:
		t.Fatal("timer fired but no timeout event was queued")
	}
}

func lastResolution(t *testing.T, gm *GameMachine) Resolution {
	t.Helper()

	require.NotEmpty(t, gm.ctx.Resolutions)
	return gm.ctx.Resolutions[len(gm.ctx.Resolutions)-1]
}

func deadIDs(res Resolution) []string {
	ids := make([]string, 0, len(res.Deaths))
	for _, d := range res.Deaths {
		ids = append(ids, d.PlayerID)
	}
	return ids
}
