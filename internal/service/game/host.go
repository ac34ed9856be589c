package game

import "time"

// Host 是宿主平台提供的消息能力，每局游戏注入一个独立实例
type Host interface {
	// channel 为 CHANNEL_GENERAL 时发给所有人
	Broadcast(channel, text string)
	Whisper(playerID, text string)
	// 附在某个玩家名字旁的信息，例如实时票数
	PlayerInfo(channel, playerID, text string)
	// 进入新阶段时通知宿主渲染各玩家可用的动作
	StageEntered(info StageInfo)
}

// Prompt 描述某个玩家在当前阶段可以执行的一个动作
type Prompt struct {
	PlayerID string   `json:"player_id"`
	Action   string   `json:"action"`
	Type     string   `json:"type"`
	Submit   string   `json:"submit"`
	Targets  []string `json:"targets"`
}

type StageInfo struct {
	GameID       string        `json:"game_id"`
	Stage        string        `json:"stage"`
	Seq          int           `json:"seq"`
	Round        int           `json:"round"`
	Duration     time.Duration `json:"duration"`
	ControllerID string        `json:"controller_id,omitempty"`
	Prompts      []Prompt      `json:"prompts"`
}

type NopHost struct{}

func (NopHost) Broadcast(string, string)          {}
func (NopHost) Whisper(string, string)            {}
func (NopHost) PlayerInfo(string, string, string) {}
func (NopHost) StageEntered(StageInfo)            {}

// Scheduler 是宿主的定时器原语，返回的函数用于取消
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
