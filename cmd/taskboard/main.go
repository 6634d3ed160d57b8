// Command taskboard はタスク管理APIのエントリーポイント。
//
// サブコマンド: serve（デフォルト）、worker、migrate、healthcheck
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/taskboard/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "taskboard: %v\n", err)
		os.Exit(1)
	}
}
