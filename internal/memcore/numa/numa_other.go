//go:build !linux

package numa

func platformAdvisor() Advisor { return singleNodeAdvisor{} }
