package game

import (
	"errors"
	"fmt"
)

// 开局阶段的致命错误
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrUnknownRole         = errors.New("unknown role")
	ErrInsufficientPlayers = errors.New("insufficient players")
)

// 玩家操作错误，只回报给操作者本人，不影响状态机
var (
	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidTarget = errors.New("invalid target")
	ErrAlreadyActed  = errors.New("already acted")
	ErrNotInGame     = errors.New("player not in game")
	ErrGameOver      = errors.New("game is over")
)

// ConfigurationError 描述结构性错误的配置项
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// IsRecoverable 判断错误是否只需回报给玩家重新选择
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrAlreadyActed) ||
		errors.Is(err, ErrNotInGame) ||
		errors.Is(err, ErrGameOver)
}
