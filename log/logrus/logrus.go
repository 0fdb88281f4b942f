package logrus

import (
	"github.com/sirupsen/logrus"

	qingque "github.com/naoTimesdev/qingque-api"
)

type Logger struct{ E *logrus.Entry }

var _ qingque.Logger = Logger{}

func (l Logger) Debug(msg string, f qingque.Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logger) Info(msg string, f qingque.Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f qingque.Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f qingque.Fields) { l.E.WithFields(logrus.Fields(f)).Error(msg) }
