package main

import "errors"

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigFileRead     = errors.New("cannot read config file")
	errConfigInvalid      = errors.New("invalid config file")
	errCapacityNegative   = errors.New("initial_capacity cannot be negative")
	errPromptEmpty        = errors.New("prompt cannot be empty")

	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("wrong number of arguments")
	errUnknownName    = errors.New("no handle with that name")
	errNameTaken      = errors.New("name already in use")
	errNotNumeric     = errors.New("handle does not hold numbers")
	errReadOnly       = errors.New("handle is read-only")
	errRootScope      = errors.New("cannot pop the root scope")
	errNotErased      = errors.New("only view and slice handles can be downcast")
	errUnknownType    = errors.New("unknown downcast type")
	errDowncastFailed = errors.New("downcast failed")
)
