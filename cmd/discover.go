package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/usj-wait-api/pkg/client"
	"github.com/shouni/usj-wait-api/pkg/discover"
)

var discoverFlags struct {
	URL string // --url 探索対象の一覧ページ
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "一覧ページからアトラクションのスラッグを列挙します",
	Long: `待ち時間サイトの一覧ページを取得し、見つかったアトラクションのスラッグと
リンクテキストをJSONで標準出力に書き出します。カタログ設定の更新に使います。`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(
		&discoverFlags.URL,
		"url",
		"",
		"一覧ページのURL（省略時は主ホストのトップページ）",
	)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	url := discoverFlags.URL
	if url == "" {
		url = fmt.Sprintf("https://%s/", appConfig.Upstream.PrimaryHost)
	}
	url, err := ensureScheme(url)
	if err != nil {
		return err
	}

	httpClient := client.New(appConfig.Upstream.Timeout())
	d, err := discover.NewDiscoverer(httpClient)
	if err != nil {
		return err
	}

	found, err := d.Discover(cmd.Context(), url)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(found)
}
