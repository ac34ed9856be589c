package game

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_SUBMIT_ACTION = "SubmitAction"
	REQ_END_STAGE     = "EndStage"
	REQ_TIMEOUT       = "Timeout"
	REQ_DISCONNECT    = "Disconnect"
	REQ_CANCEL        = "Cancel"
	REQ_MESSAGE       = "Message"
	REQ_SNAPSHOT      = "Snapshot"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`

	// 可选，事件循环处理完后把结果写回，容量至少为 1
	ReplyCh chan ResponseWrapper `json:"-"`
}

func WrapRequest(reqType string, data any) RequestWrapper {
	return RequestWrapper{
		ReqType: reqType,
		Data:    mustMarshal(data),
	}
}

// 请求负载都是本包定义的结构体，序列化失败属于编程错误
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}

	return data
}

func tryUnwrap[T any](wrapper RequestWrapper, reqType string) *T {
	if wrapper.ReqType != reqType {
		return nil
	}

	var req T

	err := json.Unmarshal(wrapper.Data, &req)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap "+reqType+"Request",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &req
}

func TryUnwrapSubmitActionRequest(wrapper RequestWrapper) *SubmitActionRequest {
	return tryUnwrap[SubmitActionRequest](wrapper, REQ_SUBMIT_ACTION)
}

func TryUnwrapEndStageRequest(wrapper RequestWrapper) *EndStageRequest {
	return tryUnwrap[EndStageRequest](wrapper, REQ_END_STAGE)
}

func TryUnwrapTimeoutRequest(wrapper RequestWrapper) *TimeoutRequest {
	return tryUnwrap[TimeoutRequest](wrapper, REQ_TIMEOUT)
}

func TryUnwrapDisconnectRequest(wrapper RequestWrapper) *DisconnectRequest {
	return tryUnwrap[DisconnectRequest](wrapper, REQ_DISCONNECT)
}

func TryUnwrapCancelRequest(wrapper RequestWrapper) *CancelRequest {
	return tryUnwrap[CancelRequest](wrapper, REQ_CANCEL)
}

func TryUnwrapMessageRequest(wrapper RequestWrapper) *MessageRequest {
	return tryUnwrap[MessageRequest](wrapper, REQ_MESSAGE)
}

// 响应类型
const (
	RESP_ERROR = "Error"

	RESP_ACK      = "Ack"
	RESP_MESSAGE  = "Message"
	RESP_SNAPSHOT = "Snapshot"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data"`
	ErrMsg   string `json:"error_message,omitempty"`

	Err error `json:"-"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(err error) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   err.Error(),
		Err:      err,
	}
}
