// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package testutil

import (
	"errors"

	. "gopkg.in/check.v1"
)

type errorIsChecker struct {
	*CheckerInfo
}

// ErrorIs determines whether any error in a chain has a specific
// value, using errors.Is
//
// For example:
//
//	c.Check(err, ErrorIs, io.EOF)
var ErrorIs Checker = &errorIsChecker{
	&CheckerInfo{Name: "ErrorIs", Params: []string{"value", "expected"}}}

func (checker *errorIsChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	err, ok := params[0].(error)
	if !ok {
		return false, "value is not an error"
	}

	expected, ok := params[1].(error)
	if !ok {
		return false, "expected is not an error"
	}

	return errors.Is(err, expected), ""
}

type isZeroBytesChecker struct {
	*CheckerInfo
}

// IsZeroBytes determines whether every byte in a slice is zero.
//
// For example:
//
//	c.Check(buf, IsZeroBytes)
var IsZeroBytes Checker = &isZeroBytesChecker{
	&CheckerInfo{Name: "IsZeroBytes", Params: []string{"value"}}}

func (checker *isZeroBytesChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	value, ok := params[0].([]byte)
	if !ok {
		return false, names[0] + " is not a byte slice"
	}

	for _, b := range value {
		if b != 0 {
			return false, ""
		}
	}
	return true, ""
}
