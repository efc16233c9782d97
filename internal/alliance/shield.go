package alliance

import (
	"bytes"
	"image"
	"image/png"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"golang.org/x/image/draw"

	// 盟徽可能以GIF或JPEG提交，注册解码器
	_ "image/gif"
	_ "image/jpeg"
)

// DefaultShieldMaxSize 盟徽默认最大边长（像素）
const DefaultShieldMaxSize = 128

// ScaleShieldImage 解码盟徽图片并在超出边长上限时缩放，返回重编码的PNG。
// 缩放系数按宽高两轴独立计算，超限的非正方形图片会被压成正方形。
func ScaleShieldImage(data []byte, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultShieldMaxSize
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrImageDecode)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxSize || height > maxSize {
		dst := image.NewRGBA(image.Rect(0, 0, maxSize, maxSize))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrImageEncode)
	}

	return buf.Bytes(), nil
}
