package main

func main() {
	// 初始化控制台
	InitFlag()
	// 初始化配置
	InitConf(configPath)
	// 初始化日志
	InitLog()
	// 安全退出依赖日志
	InitSafeExit()
	// 初始化断点
	InitBreakPoint()
	// 开始解码
	InitTask()
}
