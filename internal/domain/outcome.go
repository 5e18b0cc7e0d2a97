package domain

// OutcomeKind 是一次查询的终态。
type OutcomeKind string

const (
	OutcomeMatch   OutcomeKind = "match"
	OutcomeNoMatch OutcomeKind = "no_match"
	OutcomeError   OutcomeKind = "error"
)

// Outcome 是 handle_query 对聊天传输层暴露的结果。
//
// 约束：
// - Kind=match：Record 一定带 Title
// - Kind=no_match：正常终态（没找到 / 没通过阈值），不是错误
// - Kind=error：Err 非空（网络失败、平台无法解析等），不能被降级为 no_match
type Outcome struct {
	Kind     OutcomeKind
	Platform Platform
	Record   Record
	Err      error
}

func (o Outcome) Detail() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
