// Package sourcemodule 聚合各类数据源（FRED、ALFRED、BLS QCEW 以及通用 URL）的默认下载策略，
// 并提供统一的注册入口。
//
// 模块作者需要：
//  1. 在 internal/sourcemodule/<module-key>/ 目录下实现数据源客户端；
//  2. 通过本包暴露的 Register 函数在 init() 中注册模块元数据；
//  3. 保证缓存写入仍遵循 CacheRoot/<Subfolder>/<file> 的路径布局。
//
// 配置中的 [[Source]] 通过 BuildRequest 与模块默认值合并，得到最终的 fetch.Request。
package sourcemodule
