package app

import (
	"fmt"
	"strings"
)

// Command はtaskboardバイナリのサブコマンド。
type Command string

const (
	// CommandServe はタスクボードAPIを起動する（引数なしの既定）。
	CommandServe Command = "serve"
	// CommandWorker は期限切れロックアウトの解除ジョブを常駐実行する。
	CommandWorker Command = "worker"
	// CommandMigrate は未適用のスキーママイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中APIの /health を確認する。
	// distrolessイメージのHEALTHCHECKから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

// commands はサポートするサブコマンドの一覧（使い方の表示順）。
var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 引数がなければCommandServeを返す。2番目以降の引数は無視する。
// 未知のサブコマンドはエラーを返す。大文字小文字は区別しない。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	name := strings.ToLower(strings.TrimSpace(args[0]))
	for _, c := range commands {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q (available: %s)", args[0], usage())
}

func usage() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
