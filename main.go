package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"openparty-mafia/internal/config"
	"openparty-mafia/internal/logger"
	"openparty-mafia/internal/service"
	"openparty-mafia/internal/service/dto"
	"openparty-mafia/internal/service/game"
	"openparty-mafia/internal/state"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)
	defer zap.L().Sync()

	// 配置中的角色数量有误时尽早失败
	if _, err := game.ParseParameters(service.ParametersFromConfig(cfg.Game)); err != nil {
		zap.S().Fatalf("角色配置无效：%v", err)
	}

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		service.NewGameService(service.GameServiceOptions{
			Rules:        service.RulesFromConfig(cfg.Game),
			DefaultRoles: cfg.Game.Roles,
			NewHost:      service.NewBotHostFactory(500 * time.Millisecond),
		}),
	)
	defer appState.GameSvc.Close()

	// 用配置中的名单开一局机器人演示
	players := make([]dto.Player, 0, len(cfg.Game.Players))
	for _, name := range cfg.Game.Players {
		players = append(players, dto.Player{Name: name})
	}

	req := dto.CreateGameRequest{
		Players:        players,
		GamemasterMode: cfg.Game.GamemasterMode,
	}
	if cfg.Game.GamemasterMode && len(players) > 0 {
		players[0].ID = "gamemaster"
		req.InitiatorID = players[0].ID
	}

	resp, err := appState.GameSvc.CreateGame(req)
	if err != nil {
		zap.S().Fatalf("创建演示游戏失败：%v", err)
	}

	done, err := appState.GameSvc.Done(resp.GameID)
	if err != nil {
		zap.S().Fatalf("演示游戏不存在：%v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
	case sig := <-sigCh:
		zap.S().Infof("收到信号 %s，取消游戏", sig)
		if err := appState.GameSvc.CancelGame(resp.GameID, "interrupted"); err != nil {
			zap.S().Warnf("取消游戏失败：%v", err)
		}
		<-done
	}

	snap, err := appState.GameSvc.Snapshot(resp.GameID)
	if err != nil {
		zap.S().Fatalf("读取游戏结果失败：%v", err)
	}

	zap.L().Info(
		"演示游戏结束",
		zap.String("game_id", snap.GameID),
		zap.Int("rounds", snap.Round),
		zap.Any("verdict", snap.Verdict),
		zap.Bool("cancelled", snap.Cancelled),
		zap.Any("players", snap.Players),
	)
}
