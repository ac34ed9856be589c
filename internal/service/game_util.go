package service

import (
	"openparty-mafia/internal/config"
	"openparty-mafia/internal/service/game"
)

// RulesFromConfig 把配置文件中的游戏部分转换为引擎规则，合法性由 Start 校验
func RulesFromConfig(cfg config.GameConfig) game.Rules {
	return game.Rules{
		NightDuration:     cfg.NightDuration,
		DayDuration:       cfg.DayDuration,
		WaitDuration:      cfg.WaitDuration,
		NightTiePolicy:    cfg.NightTiePolicy,
		DayTiePolicy:      cfg.DayTiePolicy,
		MafiaWinsAtParity: cfg.MafiaWinsAtParity,
		EndWhenAllActed:   cfg.EndWhenAllActed,
		Seed:              cfg.Seed,
		MinPlayers:        cfg.MinPlayers,
		MaxPlayers:        cfg.MaxPlayers,
	}
}

// ParametersFromConfig 以默认参数表为基础，覆盖配置中的角色数量
func ParametersFromConfig(cfg config.GameConfig) []game.Parameter {
	return game.WithOverrides(game.DefaultParameters(), cfg.Roles, cfg.GamemasterMode)
}

func isGameValid(gm *game.GameMachine) bool {
	if gm == nil {
		return false
	}

	if gm.IsFinished() {
		return false
	}

	return true
}
