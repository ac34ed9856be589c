package service

import (
	"errors"
	"math/rand/v2"
	"time"

	"openparty-mafia/internal/service/dto"
	"openparty-mafia/internal/service/game"

	"go.uber.org/zap"
)

// BotHost 把游戏消息写进日志，并替所有玩家随机选择合法目标
type BotHost struct {
	svc    *GameService
	gameID string
	// 每个阶段开始后等待多久再行动
	think time.Duration
}

func NewBotHostFactory(think time.Duration) HostFactory {
	return func(svc *GameService, gameID string) game.Host {
		return &BotHost{
			svc:    svc,
			gameID: gameID,
			think:  think,
		}
	}
}

func (bh *BotHost) Broadcast(channel, text string) {
	zap.S().Infof("[%s][%s] %s", bh.gameID, channel, text)
}

func (bh *BotHost) Whisper(playerID, text string) {
	zap.S().Debugf("[%s][to %s] %s", bh.gameID, playerID, text)
}

func (bh *BotHost) PlayerInfo(channel, playerID, text string) {
	zap.S().Debugf("[%s][%s][%s] %s", bh.gameID, channel, playerID, text)
}

// StageEntered 在状态机协程中被调用，行动必须另起协程
func (bh *BotHost) StageEntered(info game.StageInfo) {
	if info.Stage == game.STAGE_FINISHED {
		return
	}

	go bh.play(info)
}

func (bh *BotHost) play(info game.StageInfo) {
	if bh.think > 0 {
		time.Sleep(bh.think)
	}

	for _, prompt := range info.Prompts {
		target := ""
		if len(prompt.Targets) > 0 {
			target = prompt.Targets[rand.IntN(len(prompt.Targets))]
		}

		err := bh.svc.SubmitAction(dto.ActionRequest{
			GameID:   bh.gameID,
			PlayerID: prompt.PlayerID,
			Action:   prompt.Action,
			TargetID: target,
		})
		if errors.Is(err, game.ErrGameOver) {
			return
		}
		if err != nil {
			zap.S().Debugf("游戏 %s 机器人 %s 行动失败：%v", bh.gameID, prompt.PlayerID, err)
		}
	}

	// 主持人模式下由机器人主持人结束阶段
	if info.ControllerID == "" {
		return
	}

	err := bh.svc.EndStage(dto.EndStageRequest{
		GameID:       bh.gameID,
		ControllerID: info.ControllerID,
		Seq:          info.Seq,
	})
	if err != nil && !errors.Is(err, game.ErrGameOver) {
		zap.S().Debugf("游戏 %s 主持人结束阶段失败：%v", bh.gameID, err)
	}
}
