package port

import (
	"context"

	"github.com/titledoctor/pipeline-service/internal/domain/entity"
)

// TitleGenerator asks a generative model for one improved title per
// input video. The result preserves input order and carries each
// video's URL; any parse or correlation failure fails the whole batch.
type TitleGenerator interface {
	ImproveTitles(ctx context.Context, channelName string, videos []entity.Video) ([]entity.ImprovedTitle, error)
}
