package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type dgLogger struct {
	logger *zap.Logger

	// What -> With
	replacer *strings.Replacer
}

func (l *dgLogger) log(msgL int, format string, args ...interface{}) {
	if msgL == discordgo.LogDebug && !l.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}

	res := fmt.Sprintf(format, args...)
	if l.replacer != nil {
		res = l.replacer.Replace(res)
	}

	field := zap.String("data", res)
	switch msgL {
	case discordgo.LogError:
		l.logger.Error("discord api error Message", field)
	case discordgo.LogWarning:
		l.logger.Warn("discord api warning Message", field)
	case discordgo.LogInformational:
		l.logger.Info("discord api info Message", field)
	default:
		l.logger.Debug("discord api debug Message", field)
	}
}

// installDgLogger routes discordgo's package-level logging through zap,
// redacting the bot token on the way.
func installDgLogger(logger *zap.Logger, replaces []string) {
	logger = logger.With(
		zap.String("source", "discord"),
	)

	l := &dgLogger{
		logger: logger,
	}

	if len(replaces) > 0 {
		if len(replaces)%2 != 0 {
			logger.Fatal("replaces must be even", zap.Strings("replaces", replaces))
		}
		l.replacer = strings.NewReplacer(replaces...)
	}

	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		l.log(msgL, format, a...)
	}
}
