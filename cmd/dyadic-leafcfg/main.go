// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

// Command dyadic-leafcfg locates the compact leaf table key for a
// field: the minimal bit window that distinguishes the members of the
// order 2^leafW subgroup of GF(q).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"

	"gitlab.com/yawning/dyadic-sqrt/leafcfg"
)

func main() {
	qStr := flag.String("q", "", "field order (decimal, or 0x-prefixed hex)")
	leafW := flag.Uint("leafw", 0, "leaf width in bits (0 selects the engine default)")
	asJSON := flag.Bool("json", false, "emit the key as JSON")
	flag.Parse()

	if *qStr == "" {
		flag.Usage()
		os.Exit(2)
	}
	q, ok := new(big.Int).SetString(*qStr, 0)
	if !ok {
		log.Fatalf("unparseable field order %q", *qStr)
	}

	key, err := leafcfg.Search(q, *leafW)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}

	if *asJSON {
		b, err := json.MarshalIndent(key, "", "  ")
		if err != nil {
			log.Fatalf("failed to marshal key: %v", err)
		}
		fmt.Println(string(b))
		return
	}
	fmt.Println(key)
}
