package processor

import (
	"fmt"
	"runtime/debug"

	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/sirupsen/logrus"
)

// ImageProcessor runs decode, transform and encode over validated bytes. It never
// returns an error: a failing stage yields a Degraded outcome instead.
type ImageProcessor interface {
	Process(data []byte) Outcome[Encoded]
	Policy(format entity.SourceFormat) CompressionPolicy
}

type imageProcessor struct {
	decoder     *Decoder
	transformer *Transformer
	encoder     *Encoder
	policies    PolicyTable
}

func NewImageProcessor(upload config.UploadConfig, policy config.PolicyConfig) ImageProcessor {
	policies := NewPolicyTable(policy)
	return &imageProcessor{
		decoder:     NewDecoder(upload.MaxPixels),
		transformer: NewTransformer(upload.MaxDimension),
		encoder:     NewEncoder(policies, upload.MaxUploadBytes),
		policies:    policies,
	}
}

func (p *imageProcessor) Process(data []byte) (out Outcome[Encoded]) {
	stage := StageDecode
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("stack", string(debug.Stack())).Errorf("image %s stage panicked: %v", stage, r)
			out = Degraded[Encoded](stage, fmt.Errorf("panic: %v", r))
		}
	}()

	decoded := p.decoder.Decode(data)

	transformed := Then(decoded, func(a *entity.ImageArtifact) Outcome[*entity.ImageArtifact] {
		stage = StageTransform
		logrus.WithFields(logrus.Fields{
			"format": a.Format.String(),
			"mode":   a.Mode.String(),
			"width":  a.Width,
			"height": a.Height,
		}).Debug("Decoded image")
		return p.transformer.Transform(a, p.policies.For(a.Format))
	})

	return Then(transformed, func(a *entity.ImageArtifact) Outcome[Encoded] {
		stage = StageEncode
		return p.encoder.Encode(a)
	})
}

func (p *imageProcessor) Policy(format entity.SourceFormat) CompressionPolicy {
	return p.policies.For(format)
}
