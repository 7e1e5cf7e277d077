package messaging

import "context"

// DocumentCaption accompanies every delivered subtitle file.
const DocumentCaption = "Here are your subtitles."

// Messenger delivers job output to a chat target and fetches submitted
// videos. Send methods are best effort; callers log and continue on error.
type Messenger interface {
	DownloadVideo(ctx context.Context, ref, dst string) (int64, error)
	SendProgress(ctx context.Context, target, text string) error
	SendDocument(ctx context.Context, target string, data []byte, filename string) error
	SendErrorNotice(ctx context.Context, target, text string) error
}

// UploadDiscarder is implemented by messengers that hold uploaded videos
// until a job stages them. The coordinator calls it for jobs that end
// without ever staging their video.
type UploadDiscarder interface {
	DiscardUpload(ref string) error
}
