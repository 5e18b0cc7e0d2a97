package match

import "github.com/agnivade/levenshtein"

// DefaultThreshold 是标题匹配的默认阈值（编辑距离必须严格小于它）。
const DefaultThreshold = 3

// Distance 返回两个字符串按 rune 计算的 Levenshtein 编辑距离。
func Distance(a, b string) int { return levenshtein.ComputeDistance(a, b) }

// Matches 判断 candidate 是否“足够接近” query：distance < threshold。
//
// 约束：
// - 两侧都由调用方预先转小写
// - candidate 缺失时调用方直接视为不匹配，不要传空串进来
// - 不考虑长度、词序、子串；threshold<=0 时永远不匹配
func Matches(query, candidate string, threshold int) bool {
	return Distance(query, candidate) < threshold
}

// Best 返回 query 与多个候选中最小的编辑距离（空候选跳过）。
// 没有任何非空候选时 ok=false。
func Best(query string, candidates ...string) (dist int, ok bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		d := Distance(query, c)
		if !ok || d < dist {
			dist, ok = d, true
		}
	}
	return dist, ok
}
