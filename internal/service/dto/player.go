package dto

// 对局中的玩家信息，ID 为空时由服务生成
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
