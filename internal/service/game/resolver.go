package game

import (
	"fmt"
)

// Submit 校验并记录玩家在当前阶段的选择，targetID 为空表示弃权
// 返回的错误都可以恢复，失败时不修改任何状态
func Submit(ctx *GameContext, playerID, action, targetID string) error {
	if ctx.GameStage == STAGE_FINISHED {
		return ErrGameOver
	}

	p, err := ctx.GetPlayer(playerID)
	if err != nil {
		return err
	}

	if !p.Alive {
		return fmt.Errorf("%w: dead players cannot act", ErrInvalidAction)
	}

	spec, ok := p.Role.Action(action)
	if !ok {
		return fmt.Errorf("%w: %s cannot %s", ErrInvalidAction, p.Role.Title, action)
	}

	if !spec.IsAvailable(p, ctx.GameStage) {
		return fmt.Errorf("%w: %s is not available now", ErrInvalidAction, action)
	}

	previous := p.Choice
	if previous != nil && (previous.Action != action || !spec.Revisable) {
		return fmt.Errorf("%w: already chose to %s", ErrAlreadyActed, previous.Action)
	}

	if targetID != "" {
		if err := checkTarget(ctx, spec, p, targetID); err != nil {
			return err
		}
	}

	p.Choice = &Choice{Action: action, Target: targetID}

	if spec.Execute != nil {
		spec.Execute(ctx, p, previous)
	}

	return nil
}

func checkTarget(ctx *GameContext, spec ActionSpec, actor *Player, targetID string) error {
	target, ok := ctx.Players[targetID]
	if !ok {
		return fmt.Errorf("%w: %q is not in the game", ErrInvalidTarget, targetID)
	}

	if !isLegalTarget(ctx, spec, actor, target) {
		return fmt.Errorf("%w: cannot %s %s", ErrInvalidTarget, spec.Name, target.Name)
	}

	return nil
}

func isLegalTarget(ctx *GameContext, spec ActionSpec, actor, target *Player) bool {
	if !target.Alive || target.IsGamemaster() {
		return false
	}

	if target.ID == actor.ID && !spec.AllowSelf {
		return false
	}

	if spec.ValidTarget != nil && !spec.ValidTarget(ctx, actor, target) {
		return false
	}

	return true
}

// legalTargets 按加入顺序列出某个动作的合法目标
func legalTargets(ctx *GameContext, spec ActionSpec, actor *Player) []string {
	targets := make([]string, 0, len(ctx.Order))
	for _, target := range ctx.OrderedPlayers() {
		if isLegalTarget(ctx, spec, actor, target) {
			targets = append(targets, target.ID)
		}
	}

	return targets
}

// prompts 计算当前阶段每个玩家可以执行的动作
func prompts(ctx *GameContext) []Prompt {
	out := make([]Prompt, 0, len(ctx.Order))
	for _, p := range ctx.OrderedPlayers() {
		if p.Role == nil {
			continue
		}

		for _, name := range p.Role.ActionOrder {
			spec := p.Role.Actions[name]
			if !spec.IsAvailable(p, ctx.GameStage) {
				continue
			}

			out = append(out, Prompt{
				PlayerID: p.ID,
				Action:   spec.Name,
				Type:     spec.Type,
				Submit:   spec.Submit,
				Targets:  legalTargets(ctx, spec, p),
			})
		}
	}

	return out
}

// eligibleActors 返回当前阶段有可用动作的玩家
func eligibleActors(ctx *GameContext) []*Player {
	actors := make([]*Player, 0, len(ctx.Order))
	for _, p := range ctx.GetAlivePlayers() {
		for _, spec := range p.Role.Actions {
			if spec.IsAvailable(p, ctx.GameStage) {
				actors = append(actors, p)
				break
			}
		}
	}

	return actors
}

// allActed 判断所有有行动能力的玩家是否都已提交
func allActed(ctx *GameContext) bool {
	for _, p := range eligibleActors(ctx) {
		if p.Choice == nil {
			return false
		}
	}

	return true
}
