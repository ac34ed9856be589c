package game

// TargetID 为空表示弃权
type SubmitActionRequest struct {
	PlayerID string `json:"player_id"`
	Action   string `json:"action"`
	TargetID string `json:"target_id"`
}

// ControllerID 为空表示系统发起（例如所有人都已行动）
type EndStageRequest struct {
	ControllerID string `json:"controller_id"`
	// 为 0 时作用于当前阶段实例
	Seq int `json:"seq,omitempty"`
}

type TimeoutRequest struct {
	Stage string `json:"stage"`
	Seq   int    `json:"seq"`
}

type DisconnectRequest struct {
	PlayerID string `json:"player_id"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type MessageRequest struct {
	PlayerID string `json:"player_id"`
	Channel  string `json:"channel"`
	Message  string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Deliver bool   `json:"deliver"`
}
