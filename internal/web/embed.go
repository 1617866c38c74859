package web

import "embed"

//go:embed templates/* static/*
var ContentFS embed.FS
