package utils

import "errors"

// ErrorRecordNotFound is the store-agnostic absence signal; model lookups
// translate gorm.ErrRecordNotFound into it so callers never import gorm.
var ErrorRecordNotFound = errors.New("record not found")
