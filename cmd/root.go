package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/usj-wait-api/internal/config"
	"github.com/shouni/usj-wait-api/pkg/logger"
)

// --- グローバル定数 ---

const (
	appName = "usj-wait-api"
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	ConfigPath string // --config 設定ファイルのパス
}

var Flags AppFlags

// appConfig は PersistentPreRunE でロードされ、各サブコマンドが参照します。
var appConfig *config.Config

// ルートコマンドの定義
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "USJアトラクション待ち時間の照会API",
	Long: `待ち時間サイトのアトラクションページを取得し、統計情報をJSONで提供するAPIサーバーです。
サーバーの起動（serve）と、カタログ更新用のスラッグ探索（discover）を実行します。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(Flags.ConfigPath)
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Server.LogLevel); err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&Flags.ConfigPath,
		"config",
		"",
		"設定ファイルのパス（省略時はデフォルト設定と環境変数のみ）",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
}

// --- エントリポイント ---

// Execute は、rootCmd を実行するメイン関数です。
func Execute() error {
	defer logger.Sync() // best effort
	return rootCmd.Execute()
}
