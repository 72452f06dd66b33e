// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !tamago

// Package debug serves the driver's debug log ring over HTTP for live
// inspection during bring-up, host-side only; bare-metal builds have no
// net/http and exclude this package entirely.
package debug

import (
	"fmt"
	"net/http"

	_ "github.com/mkevac/debugcharts"

	"bcm43430/logring"
)

// Serve registers a handler dumping ring's contents as plain text at path,
// alongside debugcharts' own charts under /debug/charts. It does not start
// a listener; call http.ListenAndServe separately.
func Serve(mux *http.ServeMux, path string, ring *logring.Ring) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		for _, rec := range ring.All() {
			fmt.Fprintf(w, "%x\n", rec)
		}
	})
}
