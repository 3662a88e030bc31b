package pipeline

// SplitText 将长文本按指定大小和重叠进行切分（按 rune 计数，避免截断多字节字符）。
func SplitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if chunkSize <= chunkOverlap {
		// Fallback to simple split if overlap is invalid
		return simpleSplit(text, chunkSize)
	}

	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func simpleSplit(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return nil
	}
	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// SplitPages 逐页切分并保持页面顺序，返回整个文件的分块序列。
// 分块序号跨页连续，保证同一文件重放时产生完全相同的分块。
func SplitPages(pages []string, chunkSize int, chunkOverlap int) []string {
	var chunks []string
	for _, page := range pages {
		chunks = append(chunks, SplitText(page, chunkSize, chunkOverlap)...)
	}
	return chunks
}
