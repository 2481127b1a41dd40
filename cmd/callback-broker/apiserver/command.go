package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/callback-broker/internal/business"
	"github.com/openkcm/callback-broker/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Callback Broker API server",
		"Callback Broker API server hosts the public callback endpoints and the internal admin API",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
