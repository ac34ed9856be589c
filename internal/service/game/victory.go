package game

// 胜利方
const (
	WINNER_MAFIA    = FACTION_MAFIA
	WINNER_INNOCENT = FACTION_INNOCENT
	WINNER_DRAW     = "Draw"
)

type Verdict struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// CheckEnd 按固定优先级判断胜负，未分出胜负时返回 nil
//
// 1. 没有参与判定的存活玩家：平局
// 2. 黑手党全部出局：无辜者获胜
// 3. 黑手党人数追平（或严格多于）无辜者：黑手党获胜
func CheckEnd(ctx *GameContext) *Verdict {
	mafia, innocent := ctx.CountAlive()

	if mafia+innocent == 0 {
		return &Verdict{
			Winner: WINNER_DRAW,
			Reason: "Nobody is left alive in the village.",
		}
	}

	if mafia == 0 {
		return &Verdict{
			Winner: WINNER_INNOCENT,
			Reason: "Every member of the mafia has been eliminated.",
		}
	}

	if mafia > innocent || (ctx.Rules.MafiaWinsAtParity && mafia == innocent) {
		return &Verdict{
			Winner: WINNER_MAFIA,
			Reason: "The mafia has taken control of the village.",
		}
	}

	return nil
}
