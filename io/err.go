package io

import (
	"errors"

	"github.com/monkslc/lilc3/translate"
)

var f = translate.From

var (
	ErrNoInput = errors.New(f("no input attached"))
)
