package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/callback-broker/internal/business"
	"github.com/openkcm/callback-broker/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Callback Broker housekeeper job",
		"Callback Broker housekeeper job purges callback payloads that were never fetched",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
