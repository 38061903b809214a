package contract

// Chunk: 一次读取的结果。
// 约束：
// - Offset 为实际开始读取的位置（文件缩短到游标之前时回到 0）；
// - Text 为 Offset 至 EOF 的原始文本，不做任何清洗。
type Chunk struct {
	Offset int64
	Text   string
}

// End 返回读取结束后的游标位置。
func (c Chunk) End() int64 { return c.Offset + int64(len(c.Text)) }
