package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainParser_Supports(t *testing.T) {
	p := &PlainParser{}
	assert.True(t, p.Supports("notes.txt", ""))
	assert.True(t, p.Supports("README.md", ""))
	assert.True(t, p.Supports("data.csv", ""))
	assert.True(t, p.Supports("payload.json", ""))
	assert.True(t, p.Supports("blob", "text/plain"))
	assert.False(t, p.Supports("photo.png", "image/png"))
}

func TestPDFParser_Supports(t *testing.T) {
	p := &PDFParser{}
	assert.True(t, p.Supports("report.PDF", ""))
	assert.True(t, p.Supports("blob", "application/pdf"))
	assert.False(t, p.Supports("report.docx", ""))
}

func TestDocxParser_Supports(t *testing.T) {
	p := &DocxParser{}
	assert.True(t, p.Supports("contract.docx", ""))
	assert.True(t, p.Supports("blob", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.False(t, p.Supports("contract.txt", ""))
}

func TestFromBytes_PlainText(t *testing.T) {
	got := FromBytes([]byte("hello world"), "notes.txt", "text/plain")
	assert.Equal(t, "hello world", got)
}

func TestFromBytes_UnknownType(t *testing.T) {
	// 未知类型返回空串而不是错误
	got := FromBytes([]byte{0x89, 0x50, 0x4e, 0x47}, "photo.png", "image/png")
	assert.Equal(t, "", got)
}

func TestFromBytes_CorruptPDF(t *testing.T) {
	// 损坏的PDF解析失败也返回空串
	got := FromBytes([]byte("not a real pdf"), "broken.pdf", "application/pdf")
	assert.Equal(t, "", got)
}
