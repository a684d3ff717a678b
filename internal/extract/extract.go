package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/bkplatform/backend-go/internal/logger"
)

var textMimes = map[string]bool{
	"text/plain":       true,
	"text/markdown":    true,
	"text/csv":         true,
	"application/json": true,
}

// Parser 按文件类型提取文本
type Parser interface {
	Supports(filename, mime string) bool
	Parse(data []byte) (string, error)
}

// PDFParser PDF文本提取
type PDFParser struct{}

func (p *PDFParser) Supports(filename, mime string) bool {
	return mime == "application/pdf" || strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func (p *PDFParser) Parse(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("解析PDF失败: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("获取PDF页数失败: %w", err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return strings.TrimSpace(textBuilder.String()), nil
}

// DocxParser Word文档文本提取，仅支持.docx
type DocxParser struct{}

func (p *DocxParser) Supports(filename, mime string) bool {
	if mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" ||
		mime == "application/msword" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".docx")
}

func (p *DocxParser) Parse(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("解析Word文档失败: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			textBuilder.WriteString(run.Text())
		}
		textBuilder.WriteString("\n")
	}
	return strings.TrimSpace(textBuilder.String()), nil
}

// PlainParser 纯文本类文件原样读取
type PlainParser struct{}

func (p *PlainParser) Supports(filename, mime string) bool {
	if textMimes[strings.ToLower(mime)] {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".markdown", ".csv", ".json":
		return true
	}
	return false
}

func (p *PlainParser) Parse(data []byte) (string, error) {
	return string(data), nil
}

var parsers = []Parser{
	&PDFParser{},
	&DocxParser{},
	&PlainParser{},
}

// FromBytes 尽力而为的文本提取。
// 不支持的类型或解析失败都返回空串而不是错误，上传流程照常保存文件，
// 只是这份文档不会进入检索。
func FromBytes(data []byte, filename, mime string) string {
	for _, parser := range parsers {
		if !parser.Supports(filename, mime) {
			continue
		}
		text, err := parser.Parse(data)
		if err != nil {
			logger.Warn(fmt.Sprintf("text extraction failed for %s: %v", filename, err))
			return ""
		}
		return text
	}
	return ""
}
