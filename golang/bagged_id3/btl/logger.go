package btl

import "go.uber.org/zap"

var logger = zap.NewNop()

//SetLogger replaces the logger of the package. A nil logger silences the package.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
