package dto

type CreateGameRequest struct {
	Players []Player `json:"players"`
	// 主持人模式下由发起者担任主持人
	InitiatorID    string         `json:"initiator_id,omitempty"`
	Roles          map[string]int `json:"roles"`
	GamemasterMode bool           `json:"gamemaster_mode"`
}

type CreateGameResponse struct {
	GameID  string   `json:"game_id"`
	Players []Player `json:"players"`
}
