package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/callback-broker/internal/business"
	"github.com/openkcm/callback-broker/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Callback Broker migrations",
		"",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
