package otel

import "go.opentelemetry.io/otel/attribute"

func phaseNameAttr(name string) attribute.KeyValue {
	return attribute.String("taskloop.phase", name)
}

func llmModelAttr(model string) attribute.KeyValue {
	return attribute.String("llm.model", model)
}

func llmInputTokensAttr(tokens int) attribute.KeyValue {
	return attribute.Int("llm.input_tokens", tokens)
}

func llmOutputTokensAttr(tokens int) attribute.KeyValue {
	return attribute.Int("llm.output_tokens", tokens)
}

func llmToolCallsAttr(n int) attribute.KeyValue {
	return attribute.Int("llm.tool_calls", n)
}

func toolNameAttr(name string) attribute.KeyValue {
	return attribute.String("tool.name", name)
}

func toolArgsAttr(args string) attribute.KeyValue {
	return attribute.String("tool.args", args)
}

func eventDataAttr(data string) attribute.KeyValue {
	return attribute.String("event.data", data)
}
