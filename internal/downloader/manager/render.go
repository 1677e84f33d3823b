package manager

import (
	"fmt"
	"strings"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
)

func (s *Session) header(status *downloader.TorrentStatus) string {
	name := s.DisplayName
	if status != nil && status.Name != "" && !strings.EqualFold(status.Name, status.ID) {
		name = status.Name
	}
	return fmt.Sprintf("🌍 %s\n🔥 %s processed", name, s.Kind)
}

func (s *Session) renderProgress(status downloader.TorrentStatus) string {
	return fmt.Sprintf("%s\n\n🌊 %s\n💾 %s ⚡ %s/s\n⏱️ %s ⏳ %.2f %%",
		s.header(&status),
		status.State,
		downloader.FormatSize(status.TotalSize),
		downloader.FormatSize(status.DownloadSpeed),
		downloader.FormatETA(status.ETA),
		status.Progress*100,
	)
}

func (s *Session) renderTerminal(state State) string {
	switch state {
	case StateDone:
		var size int64
		if s.last != nil {
			size = s.last.TotalSize
		}
		return fmt.Sprintf("✅ Completed\n%s\n\n💾 %s ⏱️ %s",
			s.header(s.last), downloader.FormatSize(size), downloader.FormatETA(time.Since(s.StartedAt)))
	case StateAborted:
		return fmt.Sprintf("🛑 Aborted\n%s", s.header(s.last))
	case StateVanished:
		return fmt.Sprintf("👻 Vanished\n%s", s.header(s.last))
	default:
		return s.header(s.last)
	}
}
