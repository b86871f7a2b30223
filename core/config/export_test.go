package config

// ResetCache exposes resetCache to external tests.
var ResetCache = resetCache
