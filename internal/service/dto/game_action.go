package dto

// 玩家提交的阶段动作，TargetID 为空表示弃权
type ActionRequest struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	Action   string `json:"action"`
	TargetID string `json:"target_id,omitempty"`
}

// ControllerID 为空表示宿主平台本身，Seq 为 0 表示当前阶段
type EndStageRequest struct {
	GameID       string `json:"game_id"`
	ControllerID string `json:"controller_id,omitempty"`
	Seq          int    `json:"seq,omitempty"`
}

type MessageRequest struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	Channel  string `json:"channel"`
	Message  string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Deliver bool   `json:"deliver"`
}
