// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package linux

func MockDevPath(path string) (restore func()) {
	orig := devPath
	devPath = path
	return func() {
		devPath = orig
	}
}
