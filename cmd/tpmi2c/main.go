// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// tpmi2c is a small host-side tool for talking to an Atmel AT97SC3204T TPM
// sitting on an I2C bus.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deanjicn/tpm-i2c-atmel/linux"
)

var (
	busNumber int
	chipAddr  uint16
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:           "tpmi2c",
	Short:         "Talk to an Atmel AT97SC3204T TPM on an I2C bus",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&busNumber, "bus", "b", linux.DefaultBus, "I2C adapter number")
	rootCmd.PersistentFlags().Uint16VarP(&chipAddr, "addr", "a", linux.DefaultAddr, "chip address on the bus")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func device() *linux.Device {
	return linux.NewDevice(busNumber, chipAddr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
