package main

import (
	"os"

	"github.com/shouni/usj-wait-api/cmd"
)

// main 関数は、cmd.Execute を実行し、エラーが発生した場合は非ゼロで終了します。
// エラーメッセージの出力は cobra に任せます。
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
