// Package multistream 实现 multistream-select 协议（/multistream/1.0.0）
//
// multistream-select 是一种极简的协议协商握手：连接的两端各持有一个双向
// 字节流，在任何应用数据传输之前，先用一组定长前缀、换行结尾的 token 就
// “接下来说哪个子协议”达成一致。协商成功后本包即退出舞台——后续字节完全
// 属于被选中的子协议。
//
// # 角色
//
//   - Listener（响应方）：持有 Handler Registry，等待对端选择协议。见 Muxer。
//   - Initiator（发起方）：驱动握手，提议协议。见 SelectProtoOrFail /
//     SelectOneOf，以及用于“首次 I/O 时才握手”的 LazyStream。
//
// # 快速开始
//
//	// Listener 端
//	mux := multistream.NewMuxer()
//	mux.AddHandlerFunc("/echo/1.0.0", func(proto string, rwc io.ReadWriteCloser) bool {
//	    _, err := io.Copy(rwc, rwc)
//	    return err == nil
//	})
//	go mux.Handle(conn)
//
//	// Initiator 端
//	if err := multistream.SelectProtoOrFail("/echo/1.0.0", conn); err != nil {
//	    log.Fatal(err)
//	}
//
// # 文件组织
//
//	multistream/
//	├── doc.go        # 包文档
//	├── errors.go     # ErrorKind / NegotiationError
//	├── token.go      # Token 编解码
//	├── wire.go       # 握手 / trySelect / ls 的线上辅助函数
//	├── registry.go   # Handler Registry
//	├── muxer.go      # Muxer，listener 角色
//	├── selector.go   # Selector，initiator 角色
//	├── lazy.go       # LazyStream
//	└── metrics.go    # 可选的 Prometheus 指标
//
// # 非目标
//
// 本包不做加密、身份认证、压缩、重试，也不在单条传输上复用多个并发子协议，
// 也不协商 "/multistream/1.0.0" 以外的协议版本。
package multistream
