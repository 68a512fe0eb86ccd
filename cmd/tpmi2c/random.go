// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/canonical/go-tpm2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var randomBytes uint16

// randomCmd drives the full go-tpm2 stack through this transport. It only
// works against TPM2 parts - the AT97SC3204T itself is a TPM1.2 device, for
// which the raw send subcommand can be used instead.
var randomCmd = &cobra.Command{
	Use:   "random",
	Args:  cobra.ExactArgs(0),
	Short: "Fetch random bytes from a TPM2 device",
	RunE: func(cmd *cobra.Command, args []string) error {
		dev := device()
		logrus.Debugf("opening %s", dev)

		tpm, err := tpm2.OpenTPMDevice(dev)
		if err != nil {
			return xerrors.Errorf("cannot open TPM context: %w", err)
		}
		defer tpm.Close()

		data, err := tpm.GetRandom(randomBytes)
		if err != nil {
			return xerrors.Errorf("cannot fetch random bytes: %w", err)
		}

		fmt.Println(hex.EncodeToString(data))
		return nil
	},
}

func init() {
	randomCmd.Flags().Uint16VarP(&randomBytes, "count", "c", 16, "number of bytes to fetch")
	rootCmd.AddCommand(randomCmd)
}
