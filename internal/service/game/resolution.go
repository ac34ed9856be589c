package game

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"
)

type Death struct {
	PlayerID string `json:"player_id"`
	Cause    string `json:"cause"`
}

// Resolution 记录一次阶段结算的结果
type Resolution struct {
	Stage  string   `json:"stage"`
	Seq    int      `json:"seq"`
	Round  int      `json:"round"`
	Deaths []Death  `json:"deaths"`
	Tied   []string `json:"tied,omitempty"`
}

// plurality 计算相对多数，平票时按 policy 处理
// 返回的 tied 按玩家加入顺序排列，只有出现平票时才非空
func plurality(counts map[string]int, order []string, policy string, rng *rand.Rand) (string, []string) {
	best := 0
	for _, n := range counts {
		best = max(best, n)
	}

	if best == 0 {
		return "", nil
	}

	leaders := make([]string, 0, 2)
	for _, id := range order {
		if counts[id] == best {
			leaders = append(leaders, id)
		}
	}

	if len(leaders) == 1 {
		return leaders[0], nil
	}

	if policy == TIE_POLICY_RANDOM {
		return leaders[rng.IntN(len(leaders))], leaders
	}

	return "", leaders
}

// resolveNight 结算夜晚：保护 → 调查 → 自爆 → 黑手党投票 → 义警射击 → 死亡同时生效
func resolveNight(ctx *GameContext) Resolution {
	res := Resolution{
		Stage: ctx.GameStage,
		Seq:   ctx.StageSeq,
		Round: ctx.Round,
	}

	actors := ctx.GetAlivePlayers()

	protected := make(map[string]bool)
	for _, p := range actors {
		if c := p.Choice; !c.Abstained() && c.Action == ACTION_PROTECT {
			protected[c.Target] = true
		}
	}

	for _, p := range actors {
		if c := p.Choice; !c.Abstained() && c.Action == ACTION_INVESTIGATE {
			target := ctx.Players[c.Target]
			ctx.Whisper(p.ID, fmt.Sprintf("%s is on the %s side.", target.Name, DetectiveView(target)))
		}
	}

	pending := make([]Death, 0, 4)
	kill := func(id, cause string) {
		if slices.ContainsFunc(pending, func(d Death) bool { return d.PlayerID == id }) {
			return
		}
		pending = append(pending, Death{PlayerID: id, Cause: cause})
	}

	for _, p := range actors {
		c := p.Choice
		if c.Abstained() || c.Action != ACTION_BOMB {
			continue
		}

		// 被医生保护的恐怖分子无法行动，能力也不消耗
		if protected[p.ID] {
			ctx.Whisper(p.ID, "Someone kept you from detonating tonight.")
			continue
		}

		p.markUsed(ACTION_BOMB)
		kill(c.Target, CAUSE_BOMB)
		kill(p.ID, CAUSE_BOMB)
	}

	victim, tied := plurality(ctx.Tally(ACTION_CHOOSE), ctx.Order, ctx.Rules.NightTiePolicy, ctx.Rng)
	res.Tied = tied

	switch {
	case victim == "" && len(tied) > 0:
		ctx.Broadcast(CHANNEL_MAFIA, "The mafia could not agree on a victim.")
	case victim != "" && protected[victim]:
		zap.L().Debug(
			"黑手党的目标被医生保护",
			zap.String("game_id", ctx.GameID),
			zap.String("player_id", victim),
		)
	case victim != "":
		kill(victim, CAUSE_MAFIA)
	}

	for _, p := range actors {
		c := p.Choice
		if c.Abstained() || c.Action != ACTION_SHOOT {
			continue
		}

		// 子弹无论是否被挡下都算用掉
		p.markUsed(ACTION_SHOOT)
		if !protected[c.Target] {
			kill(c.Target, CAUSE_VIGILANTE)
		}
	}

	// 同一夜的死亡全部生效后才判定胜负
	for _, d := range pending {
		applyDeath(ctx, &res, d)
	}

	if len(res.Deaths) == 0 {
		ctx.Broadcast(CHANNEL_GENERAL, "The sun rises. Nobody died tonight.")
	}

	settleVerdict(ctx)

	return res
}

// resolveDay 结算白天投票，candidates 非空时为决胜投票
// 返回值表示是否需要进入决胜投票
func resolveDay(ctx *GameContext, candidates []string) (Resolution, bool) {
	res := Resolution{
		Stage: ctx.GameStage,
		Seq:   ctx.StageSeq,
		Round: ctx.Round,
	}

	policy := ctx.Rules.DayTiePolicy
	// 决胜投票再次平票则不处决
	if len(candidates) > 0 && policy == TIE_POLICY_RUNOFF {
		policy = TIE_POLICY_NONE
	}

	victim, tied := plurality(ctx.Tally(ACTION_VOTE), ctx.Order, policy, ctx.Rng)
	res.Tied = tied

	if victim == "" {
		if len(tied) > 0 && policy == TIE_POLICY_RUNOFF {
			ctx.RunoffCandidates = tied
			ctx.Broadcast(CHANNEL_GENERAL, fmt.Sprintf("The vote is tied between %s. Vote again.", joinNames(ctx, tied)))
			return res, true
		}

		ctx.Broadcast(CHANNEL_GENERAL, "The village could not decide. Nobody is executed today.")
		return res, false
	}

	eliminate(ctx, &res, Death{PlayerID: victim, Cause: CAUSE_VOTE})

	return res, false
}

// eliminate 让一名玩家出局并判定胜负，已分出胜负时返回 false
func eliminate(ctx *GameContext, res *Resolution, d Death) bool {
	applyDeath(ctx, res, d)
	return settleVerdict(ctx)
}

// applyDeath 只记录死亡，不判定胜负
func applyDeath(ctx *GameContext, res *Resolution, d Death) {
	p, ok := ctx.Players[d.PlayerID]
	if !ok || !p.Alive {
		return
	}

	p.Alive = false
	p.Choice = nil
	res.Deaths = append(res.Deaths, d)

	ctx.Broadcast(CHANNEL_GENERAL, deathMessage(p, d.Cause))
	ctx.Whisper(p.ID, "You are dead. You can now talk with the other dead players.")

	zap.L().Info(
		"玩家出局",
		zap.String("game_id", ctx.GameID),
		zap.String("player_id", p.ID),
		zap.String("role", p.RoleName()),
		zap.String("cause", d.Cause),
	)
}

// settleVerdict 判定胜负，已分出胜负时返回 false
func settleVerdict(ctx *GameContext) bool {
	if v := CheckEnd(ctx); v != nil {
		ctx.Verdict = v
		return false
	}

	return true
}

func deathMessage(p *Player, cause string) string {
	title := p.Role.Title

	switch cause {
	case CAUSE_MAFIA:
		return fmt.Sprintf("%s the %s was murdered by the mafia.", p.Name, title)
	case CAUSE_BOMB:
		return fmt.Sprintf("%s the %s died in an explosion.", p.Name, title)
	case CAUSE_VIGILANTE:
		return fmt.Sprintf("%s the %s was shot dead.", p.Name, title)
	case CAUSE_VOTE:
		return fmt.Sprintf("%s the %s was executed by the village.", p.Name, title)
	case CAUSE_FLED:
		return fmt.Sprintf("%s the %s fled.", p.Name, title)
	default:
		return fmt.Sprintf("%s the %s died.", p.Name, title)
	}
}

func joinNames(ctx *GameContext, ids []string) string {
	names := ""
	for i, id := range ids {
		switch {
		case i == 0:
		case i == len(ids)-1:
			names += " and "
		default:
			names += ", "
		}
		names += ctx.Players[id].Name
	}

	return names
}
