// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deanjicn/tpm-i2c-atmel/linux"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Args:  cobra.ExactArgs(0),
	Short: "Check that a chip answers on the configured bus and address",
	RunE: func(cmd *cobra.Command, args []string) error {
		dev := device()
		logrus.Debugf("probing %s", dev)
		if err := dev.Probe(); err != nil {
			return err
		}
		fmt.Printf("TPM present at %s\n", dev)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Args:  cobra.ExactArgs(0),
	Short: "List the I2C adapters on this host",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := linux.ListDevices()
		if err != nil {
			return err
		}
		for _, dev := range devices {
			fmt.Println(dev.Path())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(listCmd)
}
