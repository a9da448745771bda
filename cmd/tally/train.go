package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfitchett/tally/internal/cli"
	"github.com/mfitchett/tally/internal/common"
)

func trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the classifier from classification history",
		Long: `Rebuild the classification model from trusted history entries:
manual classifications and accepted suggestions. Auto-approved
suggestions that were never reviewed are excluded so the model cannot
reinforce its own mistakes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := initEngine(store)
			if err := eng.TrainModel(ctx); err != nil {
				if errors.Is(err, common.ErrInsufficientTrainingData) {
					fmt.Println(cli.FormatWarning("Not enough classified transactions to train. Classify more transactions first."))
					return nil
				}
				return err
			}

			fmt.Println(cli.FormatSuccess("Model trained"))
			return nil
		},
	}
}
